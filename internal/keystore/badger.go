package keystore

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fystack/solana-gateway/pkg/retry"
)

const keyPrefix = "apikeys/"

// BadgerStore persists API keys across restarts.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)

	var db *badger.DB
	// Opening can race a previous process still releasing the directory lock.
	err := retry.Constant(func() error {
		var openErr error
		db, openErr = badger.Open(opts)
		return openErr
	}, time.Second, retry.DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(provider string) (string, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + provider))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (b *BadgerStore) Set(provider, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+provider), []byte(key))
	})
}

func (b *BadgerStore) Delete(provider string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(keyPrefix + provider))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
