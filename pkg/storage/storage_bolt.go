package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var boltBucket = []byte("tracker")

// Bolt persists keys in a single bbolt bucket on disk
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens or creates the database file at path
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "could not create storage directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not create bucket")
	}

	return &Bolt{db: db}, nil
}

// Get reads key from the bucket
func (b *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "could not read %s", key)
	}

	if value == nil {
		return "", false, nil
	}

	return string(value), true, nil
}

// Set writes key to the bucket
func (b *Bolt) Set(_ context.Context, key string, value string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return errors.Wrapf(err, "could not write %s", key)
	}

	return nil
}

// Remove deletes key from the bucket
func (b *Bolt) Remove(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return errors.Wrapf(err, "could not remove %s", key)
	}

	return nil
}

// Close closes the database file
func (b *Bolt) Close() error {
	return b.db.Close()
}
