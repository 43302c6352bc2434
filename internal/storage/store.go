package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage/zapadapter"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotExist     = errors.New("user does not exist")
	ErrAlreadyFollowing = errors.New("already following")
	ErrPostNotExist     = errors.New("post does not exist")
	ErrNotPostAuthor    = errors.New("caller is not the post author")
	ErrCommentNotExist  = errors.New("comment does not exist")
	ErrNotCommentAuthor = errors.New("caller is not the comment author")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() {
	s.db.Close()
}
