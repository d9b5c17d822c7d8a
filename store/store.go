// Package store caches fetched tile description documents on disk.
package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketDescriptions = []byte("descriptions")

var ErrClosed = errors.New("store closed")

type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Open opens or creates the store at path, creating parent directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0660, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDescriptions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, logger: slog.With("d", "store", "path", path)}, nil
}

// Get returns a copy of the document stored for uri.
func (s *Store) Get(uri string) (doc []byte, ok bool, err error) {
	if s == nil || s.db == nil {
		return nil, false, ErrClosed
	}
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketDescriptions).Get([]byte(uri))
		if v == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		doc = append([]byte(nil), v...)
		ok = true
		return nil
	})
	return doc, ok, err
}

func (s *Store) Put(uri string, doc []byte) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptions).Put([]byte(uri), doc)
	})
}

func (s *Store) Delete(uri string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptions).Delete([]byte(uri))
	})
}

// ForEach calls fn for every stored document in key order.
// The doc slice must not be retained.
func (s *Store) ForEach(fn func(uri string, doc []byte) error) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptions).ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.logger.Debug("Closing store")
	err := s.db.Close()
	s.db = nil
	return err
}
