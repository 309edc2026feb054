// Package logfile provides bounded-cost read primitives over a single
// session log file. Every operation treats I/O failure as absence: missing
// or unreadable files yield empty results, and callers decide whether that
// matters.
package logfile

import (
	"bytes"
	"os"
	"time"

	"lookout/internal/logparse"
	"lookout/internal/types"
)

const chunkSize = 8 * 1024

// Tail returns the last n lines of the file. It reads backward in fixed-size
// chunks and never loads the whole file for a large log.
func Tail(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.Size() == 0 {
		return nil
	}

	var buf []byte
	offset := info.Size()
	for offset > 0 {
		readSize := int64(chunkSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize
		chunk := make([]byte, readSize)
		if _, err := file.ReadAt(chunk, offset); err != nil {
			return nil
		}
		buf = append(chunk, buf...)
		// One extra newline accounts for a possible trailing one at EOF.
		if bytes.Count(buf, []byte{'\n'}) > n {
			break
		}
	}

	lines := splitLines(buf)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Head returns the first n lines of the file, reading forward in chunks.
func Head(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var buf []byte
	chunk := make([]byte, chunkSize)
	for {
		read, err := file.Read(chunk)
		if read > 0 {
			buf = append(buf, chunk[:read]...)
		}
		if err != nil || bytes.Count(buf, []byte{'\n'}) >= n {
			break
		}
	}

	lines := splitLines(buf)
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// LineCount counts newline bytes in a single linear scan, plus one if the
// file is non-empty and does not end in a newline. No parsing is performed.
func LineCount(path string) int {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	count := 0
	lastByte := byte('\n')
	chunk := make([]byte, chunkSize)
	empty := true
	for {
		read, err := file.Read(chunk)
		if read > 0 {
			empty = false
			count += bytes.Count(chunk[:read], []byte{'\n'})
			lastByte = chunk[read-1]
		}
		if err != nil {
			break
		}
	}
	if !empty && lastByte != '\n' {
		count++
	}
	return count
}

// ReadAll loads and parses every line of the file. It returns the parsed
// messages and the byte size consumed, which a tail engine can use as its
// starting offset. Lines that fail to parse are skipped.
func ReadAll(path string) ([]*types.ParsedMessage, int64) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0
	}
	var messages []*types.ParsedMessage
	for _, line := range splitLines(data) {
		if msg := logparse.ParseLine(line); msg != nil {
			messages = append(messages, msg)
		}
	}
	return messages, int64(len(data))
}

// LastModified returns the file's mtime, or the zero time if it cannot be
// determined.
func LastModified(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Size returns the file's current byte size, or zero if it cannot be
// determined.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte{'\n'})
	parts := bytes.Split(data, []byte{'\n'})
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		lines = append(lines, string(bytes.TrimSuffix(part, []byte{'\r'})))
	}
	return lines
}
