package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BboltBackend implements Backend on a bbolt file
type BboltBackend struct {
	db *bolt.DB
}

// NewBboltBackend opens (or creates) the database at dbPath
func NewBboltBackend(dbPath string) (*BboltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db %s: %w", dbPath, err)
	}

	return &BboltBackend{db: db}, nil
}

func (b *BboltBackend) Update(fn func(tx Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(boltTx{tx})
	})
}

func (b *BboltBackend) View(fn func(tx Tx) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(boltTx{tx})
	})
}

func (b *BboltBackend) Close() error {
	return b.db.Close()
}

type boltTx struct {
	tx *bolt.Tx
}

func (t boltTx) CreateBucket(name []byte) (Bucket, error) {
	bkt, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	return bkt, nil
}

func (t boltTx) DeleteBucket(name []byte) error {
	err := t.tx.DeleteBucket(name)
	if errors.Is(err, bolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

func (t boltTx) Bucket(name []byte) Bucket {
	// Return an untyped nil, not a nil *bolt.Bucket.
	if bkt := t.tx.Bucket(name); bkt != nil {
		return bkt
	}
	return nil
}

func (t boltTx) ForEachBucket(fn func(name []byte) error) error {
	return t.tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
		return fn(name)
	})
}
