// Package store persists token streams in a bbolt database so documents can
// be matched repeatedly without re-parsing their source.
//
// Each document is a nested bucket under "documents" whose keys are
// big-endian token sequence numbers and whose values are JSON tokens. A
// stored document is read back through a cursor inside a read-only
// transaction; the transaction lives as long as the returned Source.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/coregx/spamex/stream"
	"github.com/coregx/spamex/token"
)

var documentsBucket = []byte("documents")

var (
	// ErrNotFound is returned for a document that is not in the store.
	ErrNotFound = errors.New("store: document not found")

	// ErrInvalidName is returned for an empty document name.
	ErrInvalidName = errors.New("store: invalid document name")
)

// Store is a bbolt-backed document store.
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Info describes a stored document.
type Info struct {
	Name   string
	Tokens int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger logs store operations at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(path, 0644, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	s.logger.Debug("store opened", zap.String("path", path))
	return s, nil
}

// Close closes the database. Every Source must be closed first.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(i uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], i)
	return k[:]
}

// Put reads src to the end and stores its tokens as document name,
// replacing any previous version. It returns the number of tokens stored.
func (s *Store) Put(ctx context.Context, name string, src stream.Source) (int, error) {
	if name == "" {
		return 0, ErrInvalidName
	}
	toks, err := stream.Collect(ctx, src)
	if err != nil {
		return 0, err
	}

	vals := make([][]byte, len(toks))
	for i, tok := range toks {
		js, err := json.Marshal(tok)
		if err != nil {
			return 0, fmt.Errorf("store: encoding token %d: %w", i, err)
		}
		vals[i] = js
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		docs := tx.Bucket(documentsBucket)
		if docs.Bucket([]byte(name)) != nil {
			if err := docs.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}
		b, err := docs.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		for i, js := range vals {
			if err := b.Put(key(uint64(i)), js); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: writing %s: %w", name, err)
	}
	s.logger.Debug("document stored", zap.String("name", name), zap.Int("tokens", len(toks)))
	return len(toks), nil
}

// Delete removes document name.
func (s *Store) Delete(name string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).DeleteBucket([]byte(name))
	})
	if errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return err
	}
	s.logger.Debug("document deleted", zap.String("name", name))
	return nil
}

// List returns the stored documents in name order.
func (s *Store) List() ([]Info, error) {
	var infos []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := tx.Bucket(documentsBucket)
		return docs.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			infos = append(infos, Info{
				Name:   string(k),
				Tokens: docs.Bucket(k).Stats().KeyN,
			})
			return nil
		})
	})
	return infos, err
}

// Source returns a Source reading document name. The source holds a
// read-only transaction until it is closed.
func (s *Store) Source(name string) (stream.Source, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	b := tx.Bucket(documentsBucket).Bucket([]byte(name))
	if b == nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.logger.Debug("document opened", zap.String("name", name))
	return &cursorSource{tx: tx, c: b.Cursor(), name: name}, nil
}

type cursorSource struct {
	tx      *bolt.Tx
	c       *bolt.Cursor
	name    string
	started bool
	closed  bool
}

func (s *cursorSource) Next(ctx context.Context) (token.Token, error) {
	if s.closed {
		return token.Token{}, stream.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return token.Token{}, err
	}

	var k, v []byte
	if s.started {
		k, v = s.c.Next()
	} else {
		k, v = s.c.First()
		s.started = true
	}
	if k == nil {
		return token.Token{}, io.EOF
	}

	var tok token.Token
	if err := json.Unmarshal(v, &tok); err != nil {
		return token.Token{}, fmt.Errorf("store: decoding %s token %d: %w", s.name, binary.BigEndian.Uint64(k), err)
	}
	return tok, nil
}

// Close ends the read transaction.
func (s *cursorSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback()
}
