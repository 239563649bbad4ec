package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndRecordsRoundTrip(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	first := domain.CheckpointRecord{
		Seq:       1,
		Stage:     domain.StageWrapper,
		Phase:     domain.PhaseIteration,
		Iteration: 1,
		Completed: true,
		Artifacts: map[string]string{"receptor": "/tmp/receptor_001.pdbqt"},
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	second := domain.CheckpointRecord{
		Seq:       2,
		Stage:     domain.StageWrapper,
		Phase:     domain.PhaseIteration,
		Iteration: 2,
		Completed: true,
		CreatedAt: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC),
	}

	require.NoError(t, store.Append(context.Background(), first))
	require.NoError(t, store.Append(context.Background(), second))

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0])
	assert.Equal(t, second.Seq, records[1].Seq)
}

func TestStoreRejectsSequenceRegression(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), domain.CheckpointRecord{Seq: 5, Stage: domain.StageWrapper, Phase: domain.PhaseIteration}))

	err = store.Append(context.Background(), domain.CheckpointRecord{Seq: 5, Stage: domain.StageWrapper, Phase: domain.PhaseIteration})
	require.ErrorIs(t, err, domain.ErrSequenceRegression)

	err = store.Append(context.Background(), domain.CheckpointRecord{Seq: 3, Stage: domain.StageWrapper, Phase: domain.PhaseIteration})
	require.ErrorIs(t, err, domain.ErrSequenceRegression)
}

func TestStoreRejectsUnknownSchemaVersion(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("version = 99\nrun_id = \"run-1\"\n"), 0o600))

	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	_, err = store.Records(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported state schema version")
}

func TestStoreLeftoverTempFileDoesNotCorruptState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "wns_state.toml")
	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), domain.CheckpointRecord{Seq: 1, Stage: domain.StageWrapper, Phase: domain.PhaseIteration}))

	// A torn write leaves a temp file behind; the authoritative file must
	// stay readable.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".wns-state-torn.toml.tmp"), []byte("version = "), 0o600))

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestStoreResetRemovesStateFile(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), domain.CheckpointRecord{Seq: 1, Stage: domain.StageWrapper, Phase: domain.PhaseIteration}))
	require.NoError(t, store.Reset(context.Background()))

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	// Resetting a missing file is not an error.
	require.NoError(t, store.Reset(context.Background()))
}

func TestStoreConcurrentReadersDuringWrites(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	writer, err := NewStore(statePath, "run-1")
	require.NoError(t, err)
	reader, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 20; i++ {
			err := writer.Append(context.Background(), domain.CheckpointRecord{
				Seq:       int64(i),
				Stage:     domain.StageWrapper,
				Phase:     domain.PhaseIteration,
				Iteration: i,
			})
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 20; i++ {
		records, err := reader.Records(context.Background())
		assert.NoError(t, err)
		for j, record := range records {
			assert.Equal(t, int64(j+1), record.Seq, "records must stay ordered, got "+strconv.Itoa(j))
		}
	}

	wg.Wait()
}

func TestStoreContextCancellation(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "wns_state.toml")
	store, err := NewStore(statePath, "run-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Append(ctx, domain.CheckpointRecord{Seq: 1}), context.Canceled)
	_, err = store.Records(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
