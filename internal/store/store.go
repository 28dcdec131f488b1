// Package store defines where imported transactions go and how they are
// read back for reports.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// Store receives parsed transactions. Append buffers a batch; Commit makes
// everything buffered since the last Commit durable in one step.
type Store interface {
	Append(ctx context.Context, txns []model.Transaction) error
	Commit(ctx context.Context) error
}

// Reader returns stored transactions with from <= Date < to, ordered by date.
// A zero to means there is no upper bound.
type Reader interface {
	Between(ctx context.Context, from, to time.Time) ([]model.Transaction, error)
}

// ReadWriter is implemented by both storage engines.
type ReadWriter interface {
	Store
	Reader
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")
