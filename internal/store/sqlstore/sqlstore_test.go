package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

var importedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func txn(date, amount, desc string) model.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return model.Transaction{
		ID:          uuid.New(),
		Date:        d,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Merchant:    desc,
		ImportedAt:  importedAt,
	}
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestAppendCommitBetween(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	in := []model.Transaction{
		txn("2025-01-05", "-12.34", "COFFEE"),
		txn("2025-01-20", "2500.00", "PAYROLL"),
		txn("2025-02-01", "-0.01", "FEE"),
	}
	require.NoError(t, s.Append(ctx, in))

	// Nothing is visible before Commit.
	got, err := s.Between(ctx, day("2025-01-01"), day("2025-03-01"))
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Commit(ctx))

	got, err = s.Between(ctx, day("2025-01-01"), day("2025-02-01"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, in[0].ID, got[0].ID)
	assert.True(t, in[0].Amount.Equal(got[0].Amount))
	assert.Equal(t, "-12.34", got[0].Amount.StringFixed(2))
	assert.Equal(t, in[0].Date, got[0].Date)
	assert.Equal(t, "COFFEE", got[0].Merchant)
	assert.True(t, importedAt.Equal(got[0].ImportedAt))
	assert.Equal(t, "PAYROLL", got[1].Description)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBetween_OpenEnded(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.Append(ctx, []model.Transaction{
		txn("2024-12-31", "-1", "OLD"),
		txn("2025-01-05", "-2", "JAN"),
		txn("2031-07-01", "-3", "FUTURE"),
	}))
	require.NoError(t, s.Commit(ctx))

	got, err := s.Between(ctx, day("2025-01-01"), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "JAN", got[0].Description)
	assert.Equal(t, "FUTURE", got[1].Description)
}

func TestAppend_RejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	bad := txn("2025-01-05", "0", "ZERO")
	err := s.Append(ctx, []model.Transaction{txn("2025-01-05", "-1", "OK"), bad})
	var be *store.BatchError
	require.True(t, errors.As(err, &be))

	require.NoError(t, s.Commit(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppend_DuplicateAcrossBatches(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	a := txn("2025-01-05", "-1", "A")
	require.NoError(t, s.Append(ctx, []model.Transaction{a}))
	assert.Error(t, s.Append(ctx, []model.Transaction{a}))
}

func TestCommit_Empty(t *testing.T) {
	s := openTest(t)
	assert.NoError(t, s.Commit(context.Background()))
}

func TestCommit_ConflictKeepsNothing(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	a := txn("2025-01-05", "-1", "A")
	require.NoError(t, s.Append(ctx, []model.Transaction{a}))
	require.NoError(t, s.Commit(ctx))

	// Same ID again in a fresh batch collides with the stored row.
	require.NoError(t, s.Append(ctx, []model.Transaction{txn("2025-01-06", "-2", "B"), a}))
	require.Error(t, s.Commit(ctx))
	require.NoError(t, s.Commit(ctx), "failed batch is discarded")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tally.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, []model.Transaction{txn("2025-01-05", "-99.95", "SHOP")}))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Between(ctx, day("2025-01-01"), day("2026-01-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "-99.95", got[0].Amount.String())
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(ctx, nil), store.ErrClosed)
	assert.ErrorIs(t, s.Commit(ctx), store.ErrClosed)
	_, err = s.Between(ctx, day("2025-01-01"), day("2025-02-01"))
	assert.ErrorIs(t, err, store.ErrClosed)
}
