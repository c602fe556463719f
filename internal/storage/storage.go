// Package storage keeps an optional history of successful churn predictions.
// It uses BoltDB as the underlying storage engine; records are JSON values
// keyed by their big-endian nanosecond timestamp so cursor order is time order.
package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"churn-web/internal/churn"

	"go.etcd.io/bbolt"
)

const (
	// DBFile is the database file created under the data path.
	DBFile = "churn-history.db"

	predictionsBucket = "predictions"
)

// PredictionRecord is one stored prediction.
type PredictionRecord struct {
	Timestamp   time.Time         `json:"timestamp"`
	Prediction  churn.Label       `json:"prediction"`
	Probability float64           `json:"probability"`
	Details     churn.InputRecord `json:"details"`
}

// Store provides persistent prediction history using BoltDB.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// New opens (or creates) the history database in dataPath.
// Returns an error if the database cannot be opened or the bucket cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Record stores a successful prediction stamped with the current time.
func (s *Store) Record(_ context.Context, result churn.PredictionResult) error {
	return s.Append(PredictionRecord{
		Timestamp:   s.now().UTC(),
		Prediction:  result.Prediction,
		Probability: result.Probability,
		Details:     result.Details,
	})
}

// Append stores rec. Records sharing a timestamp are kept in insertion order.
func (s *Store) Append(rec PredictionRecord) error {
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		ts := uint64(rec.Timestamp.UnixNano())
		for b.Get(encodeKey(ts)) != nil {
			ts++
		}
		return b.Put(encodeKey(ts), data)
	})
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]PredictionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}
	if n <= 0 {
		return nil, nil
	}

	var records []PredictionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < n; k, v = c.Prev() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Range returns records with start <= timestamp <= end, oldest first.
func (s *Store) Range(start, end time.Time) ([]PredictionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}

	var records []PredictionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		endNano := uint64(end.UnixNano())
		for k, v := c.Seek(encodeKey(uint64(start.UnixNano()))); k != nil && decodeKey(k) <= endNano; k, v = c.Next() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("store is closed")
	}
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func encodeKey(ts uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, ts)
	return key
}

func decodeKey(k []byte) uint64 {
	if len(k) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k)
}
