// Package store provides the bbolt-backed implementation of the ledger and
// chat snapshot stores. Three independent values are persisted: the record
// list, the session list, and the active-session id.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"scansave/internal/chat"
	"scansave/internal/receipt"
)

const (
	ledgerBucket = "ledger"
	chatBucket   = "chat"

	recordsKey  = "records"
	sessionsKey = "sessions"
	activeKey   = "active"
)

// Bolt owns the database file and hands out the per-subsystem store views.
type Bolt struct {
	db *bbolt.DB
}

// Open opens (or creates) the database and its buckets.
func Open(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(ledgerBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(chatBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Ledger returns the receipt snapshot store view.
func (b *Bolt) Ledger() receipt.Store {
	return ledgerStore{db: b.db}
}

// Chat returns the session snapshot store view.
func (b *Bolt) Chat() chat.Store {
	return chatStore{db: b.db}
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

type ledgerStore struct {
	db *bbolt.DB
}

func (s ledgerStore) Load() ([]receipt.Record, error) {
	var records []receipt.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ledgerBucket)).Get([]byte(recordsKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("unmarshaling ledger snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s ledgerStore) Save(records []receipt.Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("marshaling ledger snapshot: %w", err)
		}
		return tx.Bucket([]byte(ledgerBucket)).Put([]byte(recordsKey), data)
	})
}

type chatStore struct {
	db *bbolt.DB
}

func (s chatStore) Load() ([]chat.Session, string, error) {
	var sessions []chat.Session
	var activeID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(chatBucket))
		if data := bucket.Get([]byte(sessionsKey)); data != nil {
			if err := json.Unmarshal(data, &sessions); err != nil {
				return fmt.Errorf("unmarshaling session snapshot: %w", err)
			}
		}
		if data := bucket.Get([]byte(activeKey)); data != nil {
			activeID = string(data)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return sessions, activeID, nil
}

func (s chatStore) Save(sessions []chat.Session, activeID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(chatBucket))
		data, err := json.Marshal(sessions)
		if err != nil {
			return fmt.Errorf("marshaling session snapshot: %w", err)
		}
		if err := bucket.Put([]byte(sessionsKey), data); err != nil {
			return err
		}
		return bucket.Put([]byte(activeKey), []byte(activeID))
	})
}
