package marker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory.
	Path string

	InMemory bool

	SyncWrites bool

	// Logger receives badger's own logging. Nil silences it.
	Logger *slog.Logger
}

func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore keeps markers in a badger database under
// marker/<resource>/<id>, JSON encoded.
type BadgerStore struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens (or creates) the marker database.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("marker: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create marker store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open marker store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func resourcePrefix(resource string) []byte {
	return []byte("marker/" + resource + "/")
}

func markerKey(resource, id string) []byte {
	return append(resourcePrefix(resource), id...)
}

func (s *BadgerStore) Find(resource string, types ...string) ([]Marker, error) {
	match := typeFilter(types)
	var out []Marker
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := resourcePrefix(resource)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m Marker
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("decode marker %s: %w", it.Item().Key(), err)
			}
			if match(m.Type) {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMarkers(out)
	return out, nil
}

type badgerTx struct {
	txn      *badger.Txn
	resource string
}

func (tx *badgerTx) Delete(id string) error {
	key := markerKey(tx.resource, id)
	if _, err := tx.txn.Get(key); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return tx.txn.Delete(key)
}

func (tx *badgerTx) Create(m Marker) (Marker, error) {
	m.ID = uuid.NewString()
	m.Resource = tx.resource
	val, err := json.Marshal(m)
	if err != nil {
		return Marker{}, err
	}
	if err := tx.txn.Set(markerKey(tx.resource, m.ID), val); err != nil {
		return Marker{}, err
	}
	return m, nil
}

// Update runs fn in a single badger transaction.
func (s *BadgerStore) Update(resource string, fn func(tx Tx) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, resource: resource})
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
