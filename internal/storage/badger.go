package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/hailam/foxsee/internal/obslog"
)

// BadgerStore wraps BadgerDB for persistent storage.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = badgerLogger{obslog.L().Named("badger").Sugar()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveAnalysis stores a unless a deeper analysis is already on disk.
func (s *BadgerStore) SaveAnalysis(_ context.Context, a *Analysis) error {
	a.prepare()
	key := []byte(analysisKey(a.FEN))

	return s.db.Update(func(txn *badger.Txn) error {
		old, err := getJSON[Analysis](txn, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if !a.supersedes(old) {
			return nil
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// LoadAnalysis returns the stored analysis of fen.
func (s *BadgerStore) LoadAnalysis(_ context.Context, fen string) (*Analysis, error) {
	var a *Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = getJSON[Analysis](txn, []byte(analysisKey(fen)))
		return err
	})
	return a, err
}

// SavePreferences saves the engine preferences.
func (s *BadgerStore) SavePreferences(_ context.Context, p *Preferences) error {
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads the engine preferences.
func (s *BadgerStore) LoadPreferences(_ context.Context) (*Preferences, error) {
	var p *Preferences
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getJSON[Preferences](txn, []byte(keyPreferences))
		return err
	})
	return p, err
}

// getJSON decodes the value at key, mapping a missing key to ErrNotFound.
func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	v := new(T)
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// badgerLogger routes badger's own logging into zap. Badger is chatty at
// info level, so that goes to debug.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.s.Errorf(f, args...) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.s.Warnf(f, args...) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.s.Debugf(f, args...) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.s.Debugf(f, args...) }
