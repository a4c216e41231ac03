// Package storage holds JSON records in badger under a key prefix.
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"unhunk/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// BadgerStore provides generic storage operations
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) Create(entity Entity) error {
	if entity.GetID() == "" {
		return errors.ValidationError("entity ID cannot be empty", nil)
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return errors.Internal("marshaling entity", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return errors.ValidationError(fmt.Sprintf("entity already exists: %s", entity.GetID()), nil)
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.IO("reading entity", err)
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Get(id string, entity Entity) error {
	key := s.makeKey(id)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, entity)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound(fmt.Sprintf("entity not found: %s", id))
	}
	if err != nil {
		return errors.IO("reading entity", err)
	}
	return nil
}

func (s *BadgerStore) Update(entity Entity) error {
	if entity.GetID() == "" {
		return errors.ValidationError("entity ID cannot be empty", nil)
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return errors.Internal("marshaling entity", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound(fmt.Sprintf("entity not found: %s", entity.GetID()))
		} else if err != nil {
			return errors.IO("reading entity", err)
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Delete(id string) error {
	key := s.makeKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound(fmt.Sprintf("entity not found: %s", id))
		} else if err != nil {
			return errors.IO("reading entity", err)
		}
		return txn.Delete(key)
	})
}

// List decodes every record under the prefix into results, which must be a
// pointer to a slice.
func (s *BadgerStore) List(results interface{}) error {
	var values []json.RawMessage
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(s.prefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, val)
		}
		return nil
	})
	if err != nil {
		return errors.IO("listing entities", err)
	}

	data, err := json.Marshal(values)
	if err != nil {
		return errors.Internal("collecting entities", err)
	}
	return json.Unmarshal(data, results)
}
