package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. A Store bound to a
// transaction handle sees only that transaction's view.
type Store struct {
	DB          *gorm.DB
	People      PersonRepositoryInterface
	Connections ConnectionRepositoryInterface
	Merges      MergeRecordRepositoryInterface
}

// NewStore creates a Store whose repositories all share db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:          db,
		People:      NewPersonRepository(db),
		Connections: NewConnectionRepository(db),
		Merges:      NewMergeRecordRepository(db),
	}
}

// WithContext returns a Store whose queries carry ctx
func (s *Store) WithContext(ctx context.Context) *Store {
	return NewStore(s.DB.WithContext(ctx))
}

// Transaction runs fn against a transaction-bound Store. Returning an error
// from fn rolls back every write fn made; returning nil commits them.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
