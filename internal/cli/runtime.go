package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"medshelf/m/internal/config"
	"medshelf/m/internal/database"
	"medshelf/m/internal/logging"
	"medshelf/m/internal/metrics"
	"medshelf/m/internal/repository"
)

// session is the open store and its collaborators for one command.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	handle  *database.Handle
	metrics *metrics.Recorder
	repo    *repository.Repository
	closers []io.Closer
}

func openSession(ctx context.Context, deps commandDeps, withMetrics bool) (*session, error) {
	cfg, err := config.Load(deps.globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	if cfg.Logging.File == "" {
		s.logger = logging.NewWithWriter(deps.errOut, cfg.Logging)
	} else {
		logger, closer, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
		s.logger = logger
		s.closers = append(s.closers, closer)
	}

	handle, err := database.Open(ctx, database.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Name:   cfg.Store.Name,
		Dir:    cfg.Store.Dir,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.handle = handle
	s.closers = append([]io.Closer{handle}, s.closers...)

	opts := []repository.Option{repository.WithLogger(s.logger)}
	if withMetrics {
		s.metrics = metrics.New()
		opts = append(opts, repository.WithMetrics(s.metrics))
	}
	s.repo = repository.New(handle, opts...)
	return s, nil
}

func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// withSession opens the store, runs fn and closes the store again.
func withSession(ctx context.Context, deps commandDeps, fn func(context.Context, *session) error) error {
	s, err := openSession(ctx, deps, false)
	if err != nil {
		return mapCommandError(err)
	}
	defer s.Close()
	return mapCommandError(fn(ctx, s))
}
