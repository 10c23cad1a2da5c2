package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var _ ObjectStore = (*Badger)(nil)

// InMemoryBadgerLimit is the largest object an in-memory badger store holds.
// In-memory databases keep every value inline in the LSM tree, which badger
// caps at its maximum value threshold.
const InMemoryBadgerLimit = 1 << 20

// Badger stores objects as values of an embedded badger database.
type Badger struct {
	db       *badger.DB
	maxValue int
}

// NewBadger opens (or creates) a badger database at dir. An empty dir opens
// an in-memory database limited to InMemoryBadgerLimit bytes per object.
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	maxValue := 0
	if dir == "" {
		opts = opts.WithInMemory(true).WithValueThreshold(InMemoryBadgerLimit)
		maxValue = InMemoryBadgerLimit
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Badger{db: db, maxValue: maxValue}, nil
}

// Put writes the object in a single transaction, so a create-only put is
// atomic with respect to concurrent writers.
func (b *Badger) Put(ctx context.Context, key string, data []byte, overwrite bool) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.maxValue > 0 && len(data) > b.maxValue {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrObjectTooLarge, key, len(data), b.maxValue)
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		if !overwrite {
			_, err := txn.Get([]byte(key))
			if err == nil {
				return fmt.Errorf("%w: %s", ErrObjectExists, key)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set([]byte(key), data)
	})
	if errors.Is(err, badger.ErrConflict) && !overwrite {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}
	return err
}

func (b *Badger) Get(ctx context.Context, key string) ([]byte, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Badger) Delete(ctx context.Context, key string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *Badger) Exists(ctx context.Context, key string) (bool, error) {
	if err := CheckKey(key); err != nil {
		return false, err
	}
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return found, err
}

func (b *Badger) Close() error {
	return b.db.Close()
}
