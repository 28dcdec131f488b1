// Package sqlstore keeps transactions in a SQLite database through gorm.
package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const (
	dateFormat = "2006-01-02"
	batchSize  = 500
)

// transactionRow is the persisted shape of model.Transaction. Amounts are kept
// as decimal text so no precision is lost to floating point.
type transactionRow struct {
	ID          string    `gorm:"primaryKey;type:text"`
	Date        string    `gorm:"index;type:text;not null"`
	Description string    `gorm:"not null"`
	Amount      string    `gorm:"type:text;not null"`
	Merchant    string    `gorm:"index;not null"`
	ImportedAt  time.Time `gorm:"not null"`
}

func (transactionRow) TableName() string { return "transactions" }

func toRow(t model.Transaction) transactionRow {
	return transactionRow{
		ID:          t.ID.String(),
		Date:        t.Date.Format(dateFormat),
		Description: t.Description,
		Amount:      t.Amount.String(),
		Merchant:    t.Merchant,
		ImportedAt:  t.ImportedAt.UTC(),
	}
}

func fromRow(r transactionRow) (model.Transaction, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing id %q: %w", r.ID, err)
	}
	date, err := time.Parse(dateFormat, r.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", r.Date, err)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", r.Amount, err)
	}
	return model.Transaction{
		ID:          id,
		Date:        date,
		Description: r.Description,
		Amount:      amount,
		Merchant:    r.Merchant,
		ImportedAt:  r.ImportedAt.UTC(),
	}, nil
}

// Store is a store.ReadWriter backed by SQLite.
type Store struct {
	db *gorm.DB

	mu      sync.Mutex
	pending []model.Transaction
	closed  bool
}

var _ store.ReadWriter = (*Store)(nil)

// Open connects to the SQLite database at path, creating the file and schema
// if needed.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&transactionRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append validates txns and buffers them until Commit. An invalid batch is
// rejected whole.
func (s *Store) Append(ctx context.Context, txns []model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	all := append(append([]model.Transaction(nil), s.pending...), txns...)
	if err := store.Check(all); err != nil {
		return err
	}
	s.pending = all
	return nil
}

// Commit writes every buffered transaction in a single database transaction.
// The buffer is emptied either way; on failure nothing is written.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	if len(s.pending) == 0 {
		return nil
	}
	defer func() { s.pending = nil }()

	rows := make([]transactionRow, len(s.pending))
	for i, t := range s.pending {
		rows[i] = toRow(t)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("committing %d transactions: %w", len(rows), err)
	}
	return nil
}

// Between returns committed transactions with from <= Date < to.
func (s *Store) Between(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, store.ErrClosed
	}

	q := s.db.WithContext(ctx).Where("date >= ?", from.Format(dateFormat))
	if !to.IsZero() {
		q = q.Where("date < ?", to.Format(dateFormat))
	}
	var rows []transactionRow
	err := q.Order("date, rowid").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}

	txns := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := fromRow(r)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// Count returns the number of committed transactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&transactionRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// Close discards anything uncommitted and releases the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	return sqlDB.Close()
}
