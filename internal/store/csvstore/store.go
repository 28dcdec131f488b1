// Package csvstore keeps transactions as plain CSV files, one per month, in a
// directory that may be a git repository.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const fileName = "transactions.csv"

// Options controls committing the ledger to git.
type Options struct {
	AutoCommit bool
	Author     gitops.Author
	RepoDir    string // repository containing the ledger; defaults to the ledger root
}

// Store is a store.ReadWriter over <root>/YYYY/MM/transactions.csv files.
type Store struct {
	root string
	opts Options

	mu      sync.Mutex
	pending []model.Transaction
	closed  bool
}

var _ store.ReadWriter = (*Store)(nil)

// New creates a Store rooted at root. The directory is created on first
// Commit.
func New(root string, opts Options) *Store {
	return &Store{root: root, opts: opts}
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

type monthKey struct {
	year  int
	month time.Month
}

// Commit rewrites every month file touched by the buffer. New contents are
// staged in temporary files first. Each one then replaces its month file,
// and the old file is kept aside until every replacement has succeeded. A
// failure restores the old files, so the ledger is left as it was. The
// buffer is emptied either way.
//
// With AutoCommit set and the ledger inside a git repository, the written
// files are committed afterwards. The data is already in place by then, so a
// failing git commit is logged and does not fail Commit.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	if len(s.pending) == 0 {
		return nil
	}
	n := len(s.pending)
	defer func() { s.pending = nil }()

	byMonth := make(map[monthKey][]model.Transaction)
	var months []monthKey
	for _, t := range s.pending {
		k := monthKey{t.Date.Year(), t.Date.Month()}
		if _, ok := byMonth[k]; !ok {
			months = append(months, k)
		}
		byMonth[k] = append(byMonth[k], t)
	}

	staged := make([]stagedFile, 0, len(months))
	discard := func() {
		for _, f := range staged {
			_ = os.Remove(f.tmp)
		}
	}
	for _, k := range months {
		if err := ctx.Err(); err != nil {
			discard()
			return err
		}
		path := s.monthPath(k.year, k.month)
		tmp, err := s.stageMonth(path, byMonth[k])
		if err != nil {
			discard()
			return err
		}
		staged = append(staged, stagedFile{path: path, tmp: tmp})
	}

	if err := place(staged); err != nil {
		discard()
		return err
	}

	paths := make([]string, 0, len(staged))
	for _, f := range staged {
		paths = append(paths, f.path)
	}

	repo := s.opts.RepoDir
	if repo == "" {
		repo = s.root
	}
	if s.opts.AutoCommit && gitops.IsRepo(repo) {
		log := logger.FromContext(ctx)
		sort.Strings(paths)
		msg := fmt.Sprintf("import: %d transactions", n)
		hash, err := gitops.Commit(ctx, repo, msg, s.opts.Author, paths...)
		if err != nil {
			log.Warn().Err(err).Int("transactions", n).Msg("ledger written but not committed to git")
			return nil
		}
		log.Info().Str("commit", hash).Int("transactions", n).Msg("ledger committed")
	}
	return nil
}

// rename is swapped out in tests.
var rename = os.Rename

type stagedFile struct {
	path   string // month file
	tmp    string // staged contents
	backup string // previous month file, empty if there was none
}

// place moves every staged file over its month file. Previous month files
// are renamed aside first and removed only once all files are in place. On
// error every month file is restored to what it was.
func place(files []stagedFile) error {
	var done []stagedFile
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			f := done[i]
			if f.backup != "" {
				_ = rename(f.backup, f.path)
			} else {
				_ = os.Remove(f.path)
			}
		}
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			f.backup = f.tmp + ".prev"
			if err := rename(f.path, f.backup); err != nil {
				rollback()
				return fmt.Errorf("setting aside %s: %w", f.path, err)
			}
		}
		if err := rename(f.tmp, f.path); err != nil {
			if f.backup != "" {
				_ = rename(f.backup, f.path)
			}
			rollback()
			return fmt.Errorf("replacing %s: %w", f.path, err)
		}
		done = append(done, f)
	}

	for _, f := range done {
		if f.backup != "" {
			_ = os.Remove(f.backup)
		}
	}
	return nil
}

// stageMonth writes the existing rows of path plus txns to a temporary file
// next to it and returns the temporary file's name.
func (s *Store) stageMonth(path string, txns []model.Transaction) (string, error) {
	existing, err := readFile(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+fileName+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if err := WriteTransactions(f, append(existing, txns...)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

// ReadMonth reads all transactions stored for a given year/month.
func (s *Store) ReadMonth(year int, month time.Month) ([]model.Transaction, error) {
	return readFile(s.monthPath(year, month))
}

// Between returns committed transactions with from <= Date < to, ordered by
// date and then by file order. A zero to leaves the range open-ended.
func (s *Store) Between(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, store.ErrClosed
	}

	months, err := s.months()
	if err != nil {
		return nil, err
	}
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)

	var out []model.Transaction
	for _, m := range months {
		start := time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
		if start.Before(first) || (!to.IsZero() && !start.Before(to)) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txns, err := s.ReadMonth(m.year, m.month)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			if !t.Date.Before(from) && (to.IsZero() || t.Date.Before(to)) {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// months lists the YYYY/MM directories under the root in order.
func (s *Store) months() ([]monthKey, error) {
	years, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}

	var out []monthKey
	for _, y := range years {
		year, ok := dirNumber(y, 4)
		if !ok {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("listing ledger: %w", err)
		}
		for _, m := range entries {
			month, ok := dirNumber(m, 2)
			if !ok || month < 1 || month > 12 {
				continue
			}
			out = append(out, monthKey{year, time.Month(month)})
		}
	}
	// os.ReadDir sorts by name and the names are zero-padded.
	return out, nil
}

func dirNumber(e fs.DirEntry, digits int) (int, bool) {
	name := e.Name()
	if !e.IsDir() || len(name) != digits {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Close discards anything uncommitted.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	return nil
}

func (s *Store) monthPath(year int, month time.Month) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", int(month)), fileName)
}

func readFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return txns, nil
}
