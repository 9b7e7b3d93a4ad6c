package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository bound to the same connection or
// database transaction.
type Repositories struct {
	db           *gorm.DB
	Listings     ListingRepository
	Messages     MessageRepository
	Transactions TransactionRepository
	Transitions  TransitionRepository
	Reviews      ReviewRepository
	Reputation   ReputationRepository
}

// Transactor runs fn against repositories bound to one database
// transaction; fn returning an error rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx *Repositories) error) error
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Listings:     NewListingRepository(db),
		Messages:     NewMessageRepository(db),
		Transactions: NewTransactionRepository(db),
		Transitions:  NewTransitionRepository(db),
		Reviews:      NewReviewRepository(db),
		Reputation:   NewReputationRepository(db),
	}
}

func (r *Repositories) WithinTransaction(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB is nil until the server has a database.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// SetDB rebinds every repository, for servers that start before the database
// is reachable.
func (r *Repositories) SetDB(db *gorm.DB) {
	r.db = db
	r.Listings.SetDB(db)
	r.Messages.SetDB(db)
	r.Transactions.SetDB(db)
	r.Transitions.SetDB(db)
	r.Reviews.SetDB(db)
	r.Reputation.SetDB(db)
}
