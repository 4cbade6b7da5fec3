package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

func TestFileDeadLetter_AppendsJSONLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	dlq, err := NewFileDeadLetter(dir, &observability.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, dlq.Publish(context.Background(), []byte(`{"type":"order"}`), DeadLetterReasonDropped))
	require.NoError(t, dlq.Publish(context.Background(), []byte(`{not json`), DeadLetterReasonDecode))
	require.NoError(t, dlq.Close())

	file, err := os.Open(filepath.Join(dir, "dead_letter.jsonl"))
	require.NoError(t, err)
	defer file.Close()

	var entries []deadLetterEntry

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry deadLetterEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, entries, 2)

	require.Equal(t, DeadLetterReasonDropped, entries[0].Reason)
	require.JSONEq(t, `{"type":"order"}`, string(entries[0].Payload))
	require.False(t, entries[0].Timestamp.IsZero())

	// El payload inválido se conserva en crudo
	require.Equal(t, DeadLetterReasonDecode, entries[1].Reason)
	require.Equal(t, []byte(`{not json`), entries[1].RawBase64)
}
