package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key layout: games are sequenced under a one-byte prefix, the sequence
// counter and weight blobs live under their own keys.
var (
	prefixGame  = []byte{'g'}
	keyGameSeq  = []byte("seq")
	prefixBlob  = []byte{'w'}
)

// Store wraps a badger database holding packed self-play games and named
// binary blobs (cached weight files).
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func gameKey(seq uint64) []byte {
	k := make([]byte, 1+8)
	copy(k, prefixGame)
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

// AppendGame stores one packed game and returns its sequence number.
func (s *Store) AppendGame(packed []byte) (uint64, error) {
	var seq uint64
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyGameSeq)
		switch {
		case err == badger.ErrKeyNotFound:
			seq = 0
		case err != nil:
			return err
		default:
			if err := item.Value(func(v []byte) error {
				seq = binary.BigEndian.Uint64(v)
				return nil
			}); err != nil {
				return err
			}
		}

		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seq+1)
		if err := txn.Set(keyGameSeq, buf[:]); err != nil {
			return err
		}
		return txn.Set(gameKey(seq), packed)
	})
	return seq, err
}

// NumGames returns the number of games appended so far.
func (s *Store) NumGames() (uint64, error) {
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyGameSeq)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			n = binary.BigEndian.Uint64(v)
			return nil
		})
	})
	return n, err
}

// WalkGames streams every stored game in sequence order; fn returning an
// error stops the walk.
func (s *Store) WalkGames(fn func(seq uint64, packed []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixGame
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			seq := binary.BigEndian.Uint64(item.Key()[1:])
			if err := item.Value(func(v []byte) error {
				return fn(seq, v)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func blobKey(name string) []byte {
	return append(append([]byte{}, prefixBlob...), name...)
}

// PutBlob caches a named binary artifact, e.g. a downloaded weight file.
func (s *Store) PutBlob(name string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(name), data)
	})
}

// GetBlob returns the cached artifact, or (nil, false, nil) if absent.
func (s *Store) GetBlob(name string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(name))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
