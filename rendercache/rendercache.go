// Package rendercache stores encoded renders on local disk so that repeated
// requests for the same scene and settings skip the render.
package rendercache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"golang.org/x/xerrors"
)

// Key prefixes that denote different tables in the key-value store.
const (
	KeyTypeRender uint32 = 0
)

// Key identifies a render by the scene source and every parameter that
// changes the output.
func Key(sceneSource []byte, params ...interface{}) []byte {
	h := sha256.New()
	h.Write(sceneSource)
	for _, p := range params {
		fmt.Fprintf(h, "\x00%T=%v", p, p)
	}

	key := make([]byte, 4, 4+sha256.Size)
	binary.BigEndian.PutUint32(key[0:4], KeyTypeRender)
	return h.Sum(key)
}

type Cache struct {
	DB *badger.DB
}

func Open(dataDir string) (*Cache, error) {
	opts := badger.DefaultOptions(dataDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, xerrors.Errorf("while opening badger db in %q: %w", dataDir, err)
	}
	return &Cache{DB: db}, nil
}

func (c *Cache) Close() error {
	if err := c.DB.Close(); err != nil {
		return xerrors.Errorf("while closing badger db: %w", err)
	}
	return nil
}

// Get returns the cached bytes for key.  ok is false when there is no entry.
func (c *Cache) Get(key []byte) (data []byte, ok bool, err error) {
	err = c.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if xerrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Errorf("while reading cache entry: %w", err)
	}
	return data, true, nil
}

// Put stores data under key.  A zero ttl keeps the entry until it is
// overwritten.
func (c *Cache) Put(key, data []byte, ttl time.Duration) error {
	err := c.DB.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return xerrors.Errorf("while writing cache entry: %w", err)
	}
	return nil
}
