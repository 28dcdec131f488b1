package importlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Source:    "chase_checking.csv",
		Outcome:   OutcomeOK,
		Accepted:  6,
		Skipped:   1,
	}
}

func logPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "logs", "import-log.csv")
}

func TestAppend_NewFile(t *testing.T) {
	path := logPath(t)
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chase_checking.csv", entries[0].Source)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n2025-01-15T10:30:00Z,chase_checking.csv,ok,6,1,\n", string(data))
}

func TestAppend_ExistingFile(t *testing.T) {
	path := logPath(t)
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Source = "savings.csv"
	e2.Outcome = OutcomeSchema
	e2.Accepted, e2.Skipped = 0, 0
	e2.Details = "Couldn't find a Date column. Common names: Date, Transaction Date, Posting Date."
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, OutcomeOK, entries[0].Outcome)
	assert.Equal(t, OutcomeSchema, entries[1].Outcome)
	assert.Equal(t, e2.Details, entries[1].Details)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(logPath(t))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	path := logPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(Header+"\n"), 0o644))

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 6 fields")

	row := MarshalEntry(testEntry())
	row[colAccepted] = "many"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing accepted")
}
