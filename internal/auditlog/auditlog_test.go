package auditlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 11, 5, 10, 30, 0, 0, time.UTC)

func testRecord() Record {
	return Record{
		Timestamp:  testTime,
		Actor:      "ana@example.com",
		Action:     ActionCreate,
		Resource:   "entry",
		ResourceID: "e-1",
		OwnerID:    "owner-1",
		Details:    "revenue 15000.00 PF",
	}
}

func TestAppendNewAndExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Record{testRecord()}))

	second := testRecord()
	second.Action = ActionDelete
	require.NoError(t, Append(dir, []Record{second}))

	records, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ActionCreate, records[0].Action)
	assert.Equal(t, ActionDelete, records[1].Action)
	assert.True(t, records[0].Timestamp.Equal(testTime))

	raw, err := os.ReadFile(filepath.Join(dir, "logs", "audit-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "timestamp,actor"))
}

func TestReadMissingFile(t *testing.T) {
	records, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestReadCorruptTimestamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	content := strings.Join(Header, ",") + "\nyesterday,a,create,entry,e,o,d\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "audit-log.csv"), []byte(content), 0o644))

	_, err := Read(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestFileRecorderStampsAndSerializes(t *testing.T) {
	dir := t.TempDir()
	rec := NewFileRecorder(dir)
	rec.now = func() time.Time { return testTime }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rec.Record(context.Background(), Record{Action: ActionUpdate, Resource: "entry"}))
		}()
	}
	wg.Wait()

	records, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, records, 8)
	for _, r := range records {
		assert.True(t, r.Timestamp.Equal(testTime))
	}
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Record(context.Background(), testRecord()))
}
