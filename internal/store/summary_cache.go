// Package store persists discovery's mtime-keyed summary cache so a restart
// does not have to re-read every session log tail.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"lookout/internal/types"
)

var bucketSummaries = []byte("summaries")

// CachedSummary pairs a computed summary with the log mtime it was computed
// from. The entry is valid if and only if the stored mtime still equals the
// file's current mtime.
type CachedSummary struct {
	ModTime time.Time             `json:"mod_time"`
	Summary *types.SessionSummary `json:"summary"`
}

type SummaryCache struct {
	db *bolt.DB
}

func Open(path string) (*SummaryCache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSummaries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SummaryCache{db: db}, nil
}

func (c *SummaryCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached entry for a log path, if any.
func (c *SummaryCache) Get(logPath string) (*CachedSummary, bool, error) {
	logPath = strings.TrimSpace(logPath)
	if logPath == "" {
		return nil, false, errors.New("log path is required")
	}
	var entry *CachedSummary
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSummaries)
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(logPath))
		if data == nil {
			return nil
		}
		var decoded CachedSummary
		if err := json.Unmarshal(data, &decoded); err != nil {
			// A corrupt entry behaves like a miss; it will be rewritten on
			// the next Put.
			return nil
		}
		entry = &decoded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if entry == nil || entry.Summary == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

func (c *SummaryCache) Put(logPath string, entry *CachedSummary) error {
	logPath = strings.TrimSpace(logPath)
	if logPath == "" {
		return errors.New("log path is required")
	}
	if entry == nil || entry.Summary == nil {
		return errors.New("entry is required")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSummaries)
		if bucket == nil {
			return errors.New("summaries bucket missing")
		}
		return bucket.Put([]byte(logPath), data)
	})
}

func (c *SummaryCache) Delete(logPath string) error {
	logPath = strings.TrimSpace(logPath)
	if logPath == "" {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSummaries)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(logPath))
	})
}

// All returns every cached entry keyed by log path, used to warm the
// in-memory cache at startup.
func (c *SummaryCache) All() (map[string]*CachedSummary, error) {
	out := make(map[string]*CachedSummary)
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSummaries)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			var decoded CachedSummary
			if err := json.Unmarshal(value, &decoded); err != nil {
				return nil
			}
			if decoded.Summary != nil {
				out[string(key)] = &decoded
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
