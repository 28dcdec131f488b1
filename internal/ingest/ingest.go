// Package ingest runs one statement through parse, store and bookkeeping.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/metrics"
	"github.com/cleared-dev/tally/internal/store"
)

// Report summarizes one import.
type Report struct {
	Source    string
	Accepted  int
	Skipped   int
	Delimiter rune
	Mapping   importer.ColumnMapping
}

// Service imports statements into a store.
type Service struct {
	importer *importer.Importer
	store    store.Store
	metrics  *metrics.Metrics
	logPath  string
	now      func() time.Time

	// persistMu keeps one import's Append and Commit together; a store
	// buffers for all of its callers.
	persistMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithImporter replaces the default importer.
func WithImporter(im *importer.Importer) Option {
	return func(s *Service) { s.importer = im }
}

// WithMetrics counts imports on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithImportLog appends one row per import to the CSV log at path.
func WithImportLog(path string) Option {
	return func(s *Service) { s.logPath = path }
}

// WithClock overrides the import-log timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service writing to st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		importer: importer.New(importer.Options{}),
		store:    st,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Import parses r, appends the records and commits them. A schema failure is
// returned as the *importer.SchemaError itself and stores nothing.
func (s *Service) Import(ctx context.Context, source string, r io.Reader) (Report, error) {
	log := logger.FromContext(ctx).With().Str("source", source).Logger()
	rep := Report{Source: source}

	res, err := s.importer.Parse(ctx, r)
	if err == nil {
		rep.Accepted = len(res.Transactions)
		rep.Skipped = res.Skipped
		rep.Delimiter = res.Delimiter
		rep.Mapping = res.Mapping
		err = s.persist(ctx, res)
	}

	outcome := importlog.OutcomeOK
	var schemaErr *importer.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		outcome = importlog.OutcomeSchema
	case err != nil:
		outcome = importlog.OutcomeError
	}
	if err != nil {
		// Nothing reached the store.
		rep.Accepted = 0
	}

	s.metrics.ObserveImport(string(outcome), rep.Accepted, rep.Skipped)
	if lerr := s.record(rep, outcome, err); lerr != nil {
		log.Warn().Err(lerr).Msg("writing import log")
	}

	if err != nil {
		log.Info().Str("outcome", string(outcome)).Err(err).Msg("import failed")
		return rep, err
	}
	log.Info().Int("accepted", rep.Accepted).Int("skipped", rep.Skipped).Msg("import finished")
	return rep, nil
}

func (s *Service) persist(ctx context.Context, res *importer.Result) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.store.Append(ctx, res.Transactions); err != nil {
		return fmt.Errorf("storing transactions: %w", err)
	}
	if err := s.store.Commit(ctx); err != nil {
		return fmt.Errorf("committing transactions: %w", err)
	}
	return nil
}

func (s *Service) record(rep Report, outcome importlog.Outcome, err error) error {
	if s.logPath == "" {
		return nil
	}
	e := importlog.Entry{
		Timestamp: s.now(),
		Source:    rep.Source,
		Outcome:   outcome,
		Accepted:  rep.Accepted,
		Skipped:   rep.Skipped,
	}
	if err != nil {
		e.Details = err.Error()
	}
	return importlog.Append(s.logPath, []importlog.Entry{e})
}
