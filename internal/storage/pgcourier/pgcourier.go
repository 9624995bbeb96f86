package pgcourier

import (
	"context"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Storage struct {
	db *pgxpool.Pool
}

// wrapPersistence maps a database failure onto the persistence sentinel so
// callers branch with errors.Is instead of seeing pgx internals.
func wrapPersistence(err error, op string) error {
	return errors.Wrap(models.ErrPersistence, op+": "+err.Error())
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
