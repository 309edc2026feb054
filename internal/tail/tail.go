// Package tail incrementally streams newly appended log records for one open
// session. After an initial full read establishes a byte offset, only bytes
// past that offset are ever read again.
package tail

import (
	"bytes"
	"os"
	"sync"

	"lookout/internal/logfile"
	"lookout/internal/logging"
	"lookout/internal/logparse"
	"lookout/internal/types"
)

const outBuffer = 64

// Engine tracks a byte offset into a single session log and emits parsed
// records for bytes appended past it. Exactly one session is tailed at a
// time: Start implicitly stops the previous tail. Notify must be driven from
// a single goroutine; Stop may be called from anywhere and is idempotent.
//
// If the file shrinks below the stored offset the engine treats it as a
// truncation and re-baselines to offset zero, replaying the file's contents
// as fresh appends.
type Engine struct {
	logger logging.Logger

	mu      sync.Mutex
	active  bool
	path    string
	offset  int64
	out     chan *types.ParsedMessage
	stopped chan struct{}
	skipped int
}

func NewEngine(logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{logger: logger}
}

// Start begins tailing path from the given byte offset, typically the size
// recorded after an initial ReadAll. The returned channel carries records in
// file order; it is not closed on Stop, so consumers pair it with their own
// cancellation.
func (e *Engine) Start(path string, offset int64) <-chan *types.ParsedMessage {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
	e.path = path
	e.offset = offset
	e.out = make(chan *types.ParsedMessage, outBuffer)
	e.stopped = make(chan struct{})
	e.skipped = 0
	return e.out
}

// Stop ends the current tail. Safe to call when idle or repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	stopped := e.stopped
	e.mu.Unlock()
	close(stopped)
}

// Path returns the tailed file path, or empty when idle.
func (e *Engine) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ""
	}
	return e.path
}

// Offset returns the current byte offset into the tailed file.
func (e *Engine) Offset() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// Skipped returns how many complete lines failed to parse since Start.
func (e *Engine) Skipped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skipped
}

// Notify reads any bytes appended since the last call and emits the parsed
// records. Called on each filesystem change notification for the tailed
// file.
func (e *Engine) Notify() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	path := e.path
	offset := e.offset
	stopped := e.stopped
	out := e.out

	size := logfile.Size(path)
	if size < offset {
		// Truncated or rotated: re-baseline and replay from the start.
		e.logger.Info("tail re-baseline",
			logging.F("path", path),
			logging.F("offset", offset),
			logging.F("size", size))
		offset = 0
		e.offset = 0
	}
	if size == offset {
		e.mu.Unlock()
		return
	}

	buf, err := readRange(path, offset, size)
	if err != nil {
		e.mu.Unlock()
		return
	}

	// Keep any trailing partial line unconsumed: the offset only advances
	// over bytes up to the last newline.
	consumed := bytes.LastIndexByte(buf, '\n') + 1
	if consumed == 0 {
		e.mu.Unlock()
		return
	}
	complete := buf[:consumed]
	e.offset = offset + int64(consumed)

	var messages []*types.ParsedMessage
	for _, line := range bytes.Split(bytes.TrimSuffix(complete, []byte{'\n'}), []byte{'\n'}) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		msg := logparse.ParseLine(string(trimmed))
		if msg == nil {
			e.skipped++
			continue
		}
		messages = append(messages, msg)
	}
	e.mu.Unlock()

	for _, msg := range messages {
		select {
		case out <- msg:
		case <-stopped:
			return
		}
	}
}

func readRange(path string, from, to int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buf := make([]byte, to-from)
	read, err := file.ReadAt(buf, from)
	if read > 0 {
		return buf[:read], nil
	}
	return nil, err
}
