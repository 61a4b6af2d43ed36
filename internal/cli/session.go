package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/duoplan/duoplan/internal/config"
	"github.com/duoplan/duoplan/internal/httpstore"
	"github.com/duoplan/duoplan/internal/pgstore"
	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
	"github.com/duoplan/duoplan/internal/remote"
	"github.com/duoplan/duoplan/internal/store"
)

// session bundles the resources a command needs: resolved config, the
// remote store, and an optional local cache. One-shot commands run
// fetch-reduce-upsert through it; watch and serve hold it open.
type session struct {
	cfg    *config.Config
	store  remote.Store
	cache  *store.Store // nil unless cache_path is set
	logger *slog.Logger

	closers []func() error
}

// newSession loads config and connects the configured backend.
func newSession(opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := &session{cfg: cfg, logger: logger}

	switch cfg.Backend {
	case config.BackendMemory:
		s.store = remote.NewMemoryStore()
	case config.BackendSQLite:
		db, err := store.Open(cfg.SQLite)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open sqlite store", err)
		}
		s.store = db
		s.closers = append(s.closers, db.Close)
	case config.BackendPostgres:
		db, err := pgstore.Open(cfg.Postgres, logger)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "connect to postgres", err)
		}
		s.store = db
		s.closers = append(s.closers, db.Close)
	case config.BackendHTTP:
		c := httpstore.NewClient(cfg.ServerURL, cfg.Token, logger)
		s.store = c
		s.closers = append(s.closers, c.Close)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}

	if cfg.CachePath != "" && cfg.Backend != config.BackendSQLite {
		cache, err := store.Open(cfg.CachePath)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "open local cache", err)
		}
		s.cache = cache
		s.closers = append(s.closers, cache.Close)
	} else if sq, ok := s.store.(*store.Store); ok {
		// The SQLite backend doubles as the local cache.
		s.cache = sq
	}

	return s, nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// meta stamps an action with the configured member and the current time.
func (s *session) meta() reducer.Meta {
	return reducer.Meta{Author: s.cfg.MemberSlot(), At: time.Now().UTC()}
}

// requirePairing fails when the config names no pairing. Serve is the only
// command that works without one.
func (s *session) requirePairing() error {
	if s.cfg.PairingID == "" {
		return NewExitError(ExitCommandError, "no pairing_id configured; set it in the config file or DUOPLAN_PAIRING_ID")
	}
	return nil
}

// fetch loads the current document, failing when the pairing has not been
// initialized yet.
func (s *session) fetch(ctx context.Context) (*plan.Envelope, error) {
	if err := s.requirePairing(); err != nil {
		return nil, err
	}
	env, err := s.store.Fetch(ctx, s.cfg.PairingID)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "fetch document", err)
	}
	if env == nil {
		return nil, NewExitError(ExitFailure, "pairing "+s.cfg.PairingID+" has no document yet; run 'duoplan init' first")
	}
	return env, nil
}

// dispatch runs one action through fetch-reduce-upsert and returns the new
// document and revision. This is the one-shot counterpart of the watch
// command's live engine.
func (s *session) dispatch(ctx context.Context, action reducer.Action) (plan.Document, int64, error) {
	env, err := s.fetch(ctx)
	if err != nil {
		return plan.Document{}, 0, err
	}

	next, _ := reducer.Apply(env.Doc, action)
	rev, err := s.store.Upsert(ctx, s.cfg.PairingID, next)
	if err != nil {
		return plan.Document{}, 0, WrapExitError(ExitCommandError, "save document", err)
	}

	if s.cache != nil {
		if cerr := s.cache.Save(s.cfg.PairingID, next); cerr != nil {
			s.logger.Warn("save local snapshot", "err", cerr)
		}
	}
	return next, rev, nil
}
