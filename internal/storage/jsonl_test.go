package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowScope/internal/model"
)

func TestJsonlStorageAppendsTypedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	require.NoError(t, sink.PutEventBatch(ctx, []model.EventRecord{
		{Kind: model.EventDisputed, SubjectID: "1", BlockNumber: 10, TxHash: "0x01"},
		{Kind: model.EventDisputed, SubjectID: "2", BlockNumber: 11, TxHash: "0x02"},
	}))
	require.NoError(t, sink.PutAgreements(ctx, []model.AggregateState{{ID: "1", StatusLabel: "Active"}}))
	require.NoError(t, sink.PutEventBatch(ctx, nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var types []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		var kind string
		require.NoError(t, json.Unmarshal(line["type"], &kind))
		types = append(types, kind)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"event", "event", "agreement"}, types)
}

type failingSink struct{ err error }

func (f failingSink) PutEventBatch(context.Context, []model.EventRecord) error    { return f.err }
func (f failingSink) PutAgreements(context.Context, []model.AggregateState) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "export.jsonl")
	multi := Multi{failingSink{err: boom}, NewJsonlStorage(path)}

	err := multi.PutEventBatch(context.Background(), []model.EventRecord{{SubjectID: "1", TxHash: "0x01"}})
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
