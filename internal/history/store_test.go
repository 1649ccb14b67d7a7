package history

import (
	"context"
	"coopcount/internal/backends/memory"
	"coopcount/internal/types"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type brokenKV struct {
	getErr, setErr, delErr error
}

func (b brokenKV) Get(context.Context, string) ([]byte, error) { return nil, b.getErr }
func (b brokenKV) Set(context.Context, string, []byte) error   { return b.setErr }
func (b brokenKV) Delete(context.Context, string) error        { return b.delErr }
func (b brokenKV) Close() error                                { return nil }

// flakyKV fails reads with getErr while it is set and otherwise serves from the embedded store.
type flakyKV struct {
	*memory.KVStore
	getErr error
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.KVStore.Get(ctx, key)
}

type StoreTestSuite struct {
	suite.Suite
	kv    *memory.KVStore
	store *Store
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.kv = memory.NewKVStore()
	s.store = NewStore(s.kv, "")
}

func (s *StoreTestSuite) appendAll(recs ...types.CountRecord) {
	for _, r := range recs {
		s.Require().NoError(s.store.Append(context.Background(), r))
	}
}

func (s *StoreTestSuite) TestScenario() {
	ctx := context.Background()
	s.appendAll(
		types.CountRecord{Count: 1, Timestamp: "t1"},
		types.CountRecord{Count: 2, Timestamp: "t2"},
		types.CountRecord{Count: 3, Timestamp: "t3"},
	)

	s.Equal([]types.CountRecord{{Count: 2, Timestamp: "t2"}, {Count: 3, Timestamp: "t3"}}, s.store.Tail(ctx, 2))
	s.Equal("Timestamp,Count\nt1,1\nt2,2\nt3,3\n", s.store.ExportText(ctx))
}

func (s *StoreTestSuite) TestListPreservesOrderAndTailBounds() {
	ctx := context.Background()
	var want []types.CountRecord
	for i := 0; i < 20; i++ {
		r := types.CountRecord{Count: (i * 7) % 5, Timestamp: fmt.Sprintf("2026-10-17T08:00:%02d.000Z", i)}
		want = append(want, r)
		s.appendAll(r)
	}

	s.Equal(want, s.store.List(ctx))
	for _, k := range []int{0, 1, 5, 20, 25} {
		n := min(k, len(want))
		s.Equal(want[len(want)-n:], s.store.Tail(ctx, k), "k=%d", k)
	}
	s.Empty(s.store.Tail(ctx, -3))
}

func (s *StoreTestSuite) TestDefaultKeyLayout() {
	ctx := context.Background()
	s.appendAll(types.CountRecord{Count: 4, Timestamp: "2026-10-17T08:00:00.000Z"})

	raw, err := s.kv.Get(ctx, DefaultKey)
	s.NoError(err)
	s.JSONEq(`[{"count":4,"timestamp":"2026-10-17T08:00:00.000Z"}]`, string(raw))
}

func (s *StoreTestSuite) TestClear() {
	ctx := context.Background()
	s.appendAll(types.CountRecord{Count: 1, Timestamp: "t1"}, types.CountRecord{Count: 2, Timestamp: "t2"})

	s.NoError(s.store.Clear(ctx))
	s.Empty(s.store.List(ctx))
	raw, err := s.kv.Get(ctx, DefaultKey)
	s.NoError(err)
	s.Nil(raw, "clear removes the key rather than writing an empty log")

	s.NoError(s.store.Clear(ctx))
	s.Equal("Timestamp,Count\n", s.store.ExportText(ctx))
}

func (s *StoreTestSuite) TestCorruptDataIsEmpty() {
	ctx := context.Background()
	for _, raw := range []string{"{not json", `{"count":1}`, "null", `[{"count":"many"}]`, "  "} {
		s.NoError(s.kv.Set(ctx, DefaultKey, []byte(raw)))
		s.Empty(s.store.List(ctx), raw)
		s.NotNil(s.store.List(ctx), raw)
	}

	// appending over a corrupt log starts a fresh one
	s.appendAll(types.CountRecord{Count: 9, Timestamp: "t9"})
	s.Equal([]types.CountRecord{{Count: 9, Timestamp: "t9"}}, s.store.List(ctx))
}

func (s *StoreTestSuite) TestReadFailureDegradesWriteFailureReports() {
	ctx := context.Background()
	st := NewStore(brokenKV{getErr: errors.New("connection refused")}, "k")
	s.Empty(st.List(ctx))
	s.NotNil(st.List(ctx))
	s.ErrorIs(st.Append(ctx, types.CountRecord{Count: 1, Timestamp: "t1"}), types.ErrDataStoreAccess)

	st = NewStore(brokenKV{setErr: errors.New("quota exceeded")}, "k")
	err := st.Append(ctx, types.CountRecord{Count: 1, Timestamp: "t1"})
	s.ErrorIs(err, types.ErrDataStoreAccess)

	st = NewStore(brokenKV{delErr: errors.New("read only")}, "k")
	s.ErrorIs(st.Clear(ctx), types.ErrDataStoreAccess)
}

func (s *StoreTestSuite) TestAppendKeepsLogWhenReadFails() {
	ctx := context.Background()
	kv := &flakyKV{KVStore: s.kv}
	st := NewStore(kv, "")
	var want []types.CountRecord
	for i := 1; i <= 5; i++ {
		r := types.CountRecord{Count: i, Timestamp: fmt.Sprintf("t%d", i)}
		want = append(want, r)
		s.Require().NoError(st.Append(ctx, r))
	}

	kv.getErr = errors.New("i/o timeout")
	err := st.Append(ctx, types.CountRecord{Count: 6, Timestamp: "t6"})
	s.ErrorIs(err, types.ErrDataStoreAccess)
	s.Empty(st.List(ctx))

	kv.getErr = nil
	s.Equal(want, st.List(ctx))
	s.Require().NoError(st.Append(ctx, types.CountRecord{Count: 6, Timestamp: "t6"}))
	s.Len(st.List(ctx), 6)
}

func (s *StoreTestSuite) TestExportRoundTrip() {
	ctx := context.Background()
	var want []types.CountRecord
	for i := 0; i < 10; i++ {
		r := types.CountRecord{Count: i * 11, Timestamp: fmt.Sprintf("2026-10-17T09:%02d:00.000Z", i)}
		want = append(want, r)
		s.appendAll(r)
	}

	lines := strings.Split(strings.TrimSuffix(s.store.ExportText(ctx), "\n"), "\n")
	s.Equal(ExportHeader, lines[0])
	s.Len(lines[1:], len(want))
	for i, line := range lines[1:] {
		ts, count, ok := strings.Cut(line, ",")
		s.True(ok)
		n, err := strconv.Atoi(count)
		s.NoError(err)
		s.Equal(want[i], types.CountRecord{Count: n, Timestamp: ts})
	}
}

func (s *StoreTestSuite) TestParseOrDefault() {
	def := []int{42}
	s.Equal([]int{1, 2}, ParseOrDefault([]byte("[1,2]"), def))
	s.Equal(def, ParseOrDefault(nil, def))
	s.Equal(def, ParseOrDefault([]byte("[1,"), def))
}
