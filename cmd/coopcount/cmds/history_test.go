package cmds

import (
	"bytes"
	"context"
	"coopcount/internal/backends/memory"
	"coopcount/internal/history"
	"coopcount/internal/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *history.Store {
	t.Helper()
	s := history.NewStore(memory.NewKVStore(), "")
	for _, r := range []types.CountRecord{{Count: 1, Timestamp: "t1"}, {Count: 2, Timestamp: "t2"}, {Count: 3, Timestamp: "t3"}} {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return s
}

// countingKV counts reads of the embedded store.
type countingKV struct {
	*memory.KVStore
	gets int
}

func (c *countingKV) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.KVStore.Get(ctx, key)
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintHistory(context.Background(), &buf, seeded(t), 2, "en"))
	assert.Equal(t, "Stored Counts\nCount: 2 (t2)\nCount: 3 (t3)\n", buf.String())
}

func TestPrintHistoryReadsLogOnce(t *testing.T) {
	ctx := context.Background()
	kv := &countingKV{KVStore: memory.NewKVStore()}
	s := history.NewStore(kv, "")
	require.NoError(t, s.Append(ctx, types.CountRecord{Count: 1, Timestamp: "t1"}))

	for _, limit := range []int{0, 1, 5} {
		kv.gets = 0
		var buf bytes.Buffer
		require.NoError(t, PrintHistory(ctx, &buf, s, limit, "en"))
		assert.Equal(t, 1, kv.gets, "limit=%d", limit)
		assert.Equal(t, "Stored Counts\nCount: 1 (t1)\n", buf.String())
	}
}

func TestExportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	require.NoError(t, Export(context.Background(), nil, seeded(t), path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Count\nt1,1\nt2,2\nt3,3\n", string(b))
}

func TestExportToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), &buf, seeded(t), "-"))
	assert.Equal(t, "Timestamp,Count\nt1,1\nt2,2\nt3,3\n", buf.String())
}

func TestReset(t *testing.T) {
	s := seeded(t)
	require.NoError(t, Reset(context.Background(), s))
	assert.Empty(t, s.List(context.Background()))
}

func TestNewAppFromEnv(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv(HistoryKeyEnvKey, "coop-a")
	t.Setenv("MODEL_URL", "")
	t.Setenv("COUNT_EVENTS_SNS_ARN", "")
	t.Setenv("DETECTOR_CONFIG", "")
	t.Setenv("DETECTION_POLICY", "")
	t.Setenv("DETECTOR_COOLDOWN", "")

	app, err := NewApp(context.Background())
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, "coop-a", app.History.Key())
	assert.Error(t, app.Counter.CheckDetector(context.Background()))
	assert.False(t, app.Counter.State().AIAvailable)
}
