package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// delimiters are the separators DetectDelimiter chooses between, in tie-break order.
var delimiters = []rune{',', ';', '\t'}

// Options customizes record construction. Zero values use the wall clock and
// random UUIDs.
type Options struct {
	Now   func() time.Time
	NewID func() uuid.UUID
}

// Importer converts a bank CSV export of unknown layout into transactions.
type Importer struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// Result is the outcome of parsing one file.
type Result struct {
	Transactions []model.Transaction
	Mapping      ColumnMapping
	Delimiter    rune
	Rows         int // data rows read, accepted or not
	Skipped      int
}

// New creates an Importer.
func New(opts Options) *Importer {
	im := &Importer{now: opts.Now, newID: opts.NewID}
	if im.now == nil {
		im.now = func() time.Time { return time.Now().UTC() }
	}
	if im.newID == nil {
		im.newID = uuid.New
	}
	return im
}

// Parse reads a whole CSV export. Missing required columns fail the file with
// a *SchemaError before any row is read; rows that cannot be dated or signed
// are skipped. Cancellation is checked between rows and discards everything.
func (im *Importer) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	log := logger.FromContext(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	delim := DetectDelimiter(data)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := headerIndex(header)
	present := make(map[string]bool, len(index))
	for k := range index {
		present[k] = true
	}
	mapping := Classify(present)
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Mapping: mapping, Delimiter: delim}
	resolver := newSignResolver(mapping)
	importedAt := im.now()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		res.Rows++

		var pe *csv.ParseError
		if errors.As(err, &pe) {
			res.Skipped++
			log.Debug().Int("line", pe.StartLine).Err(pe.Err).Msg("skipping malformed line")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		txn, reason := im.buildRecord(row{fields: rec, index: index}, mapping, resolver, importedAt)
		if reason != "" {
			res.Skipped++
			line, _ := cr.FieldPos(0)
			log.Debug().Int("line", line).Str("reason", reason).Msg("skipping row")
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}

	log.Debug().
		Str("delimiter", string(delim)).
		Bool("amount_column", mapping.UsesAmountColumn()).
		Int("accepted", len(res.Transactions)).
		Int("skipped", res.Skipped).
		Msg("parsed CSV")
	return res, nil
}

func (im *Importer) buildRecord(r row, m ColumnMapping, resolver signResolver, importedAt time.Time) (model.Transaction, string) {
	dateRaw, _ := r.get(m.Date)
	date, ok := ParseDate(dateRaw)
	if !ok {
		return model.Transaction{}, "unparseable date"
	}

	amount, ok := resolver.resolve(r)
	if !ok {
		return model.Transaction{}, "no amount"
	}
	if amount.IsZero() {
		return model.Transaction{}, "zero amount"
	}

	desc, _ := r.get(m.Description)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = model.UnknownDescription
	}

	return model.Transaction{
		ID:          im.newID(),
		Date:        date,
		Description: desc,
		Amount:      amount,
		Merchant:    GuessMerchant(desc),
		ImportedAt:  importedAt,
	}, ""
}

// headerIndex maps normalized header keys to column positions. The first of
// several columns normalizing to the same key wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := NormalizeHeader(h)
		if k == "" {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	return index
}

// fieldGetter gives raw cell access by normalized column key.
type fieldGetter interface {
	get(key string) (string, bool)
}

type row struct {
	fields []string
	index  map[string]int
}

// get returns the trimmed cell for key; short rows report the cell as missing.
func (r row) get(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return strings.TrimSpace(r.fields[i]), true
}

// DetectDelimiter picks the separator that occurs most often, outside quotes,
// on the first non-blank line. Comma wins ties and is the fallback.
func DetectDelimiter(data []byte) rune {
	line := firstLine(data)
	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if n := countUnquoted(line, d); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func firstLine(data []byte) string {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		var line []byte
		if i < 0 {
			line, data = data, nil
		} else {
			line, data = data[:i], data[i+1:]
		}
		if s := strings.TrimRight(string(line), "\r"); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func countUnquoted(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}
