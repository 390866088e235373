package repository

import (
	"context"

	"evergreen/src/database"

	"gorm.io/gorm"
)

// Repositories groups every repository bound to the same *gorm.DB, so a service can
// run several writes inside one transaction.
type Repositories struct {
	db         *gorm.DB
	Orders     *OrderRepository
	Fills      *FillRepository
	Positions  *PositionRepository
	Drift      *PositionDriftRepository
	Candles    *CandleRepository
	Audit      *AuditEventRepository
	Exceptions *ExceptionRepository
}

// NewRepositories binds all repositories to database.MainDB.
func NewRepositories() *Repositories {
	return NewRepositoriesWithDB(database.MainDB)
}

func NewRepositoriesWithDB(db *gorm.DB) *Repositories {
	return &Repositories{
		db:         db,
		Orders:     &OrderRepository{db: db},
		Fills:      &FillRepository{db: db},
		Positions:  &PositionRepository{db: db},
		Drift:      &PositionDriftRepository{db: db},
		Candles:    &CandleRepository{db: db},
		Audit:      &AuditEventRepository{db: db},
		Exceptions: &ExceptionRepository{db: db},
	}
}

// Transaction runs fn with repositories bound to a single transaction. Any error
// returned by fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositoriesWithDB(tx))
	})
}
