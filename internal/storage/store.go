package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"

	"steadydb/internal/runner"
	"steadydb/internal/stats"
)

var (
	bucketRuns = []byte("runs")
	bucketIDs  = []byte("ids")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var ErrNotFound = errors.New("run not found")

// HistoryItem is the persisted summary of one finished run.
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Target    string         `json:"target"`
	Config    runner.Config  `json:"config"`
	Summary   stats.RunStats `json:"summary"`
}

// Store keeps run history in a bbolt file. Runs are keyed by start time so
// cursor order is chronological.
type Store struct {
	db *bbolt.DB
}

// DefaultPath is $HOME/.steadydb/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".steadydb", "history.db"), nil
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketIDs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(item HistoryItem) []byte {
	return []byte(item.Timestamp.UTC().Format("20060102T150405.000000000") + "/" + item.ID)
}

func (s *Store) Save(item HistoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		key := runKey(item)
		if err := tx.Bucket(bucketRuns).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketIDs).Put([]byte(item.ID), key)
	})
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(items) >= limit {
				break
			}
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decoding run %s: %w", k, err)
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (s *Store) Get(id string) (HistoryItem, error) {
	var item HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketIDs).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		v := tx.Bucket(bucketRuns).Get(key)
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &item)
	})
	return item, err
}
