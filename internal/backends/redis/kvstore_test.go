package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// KVStoreTestSuite needs a disposable Redis at TEST_REDIS_ADDR, e.g. localhost:46379.
type KVStoreTestSuite struct {
	suite.Suite
	store *KVStore
}

func TestKVStoreTestSuite(t *testing.T) {
	if os.Getenv("TEST_REDIS_ADDR") == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	suite.Run(t, new(KVStoreTestSuite))
}

func (s *KVStoreTestSuite) SetupSuite() {
	cli := redis.NewClient(&redis.Options{Addr: os.Getenv("TEST_REDIS_ADDR"), DB: 0})
	s.Require().NoError(cli.Ping(context.Background()).Err())
	s.store = NewKVStore(cli)
}

func (s *KVStoreTestSuite) TearDownSuite() {
	s.NoError(s.store.Close())
}

func (s *KVStoreTestSuite) SetupTest() {
	s.NoError(s.store.Delete(context.Background(), "poultryCounts_test"))
}

func (s *KVStoreTestSuite) TestRoundTrip() {
	ctx := context.Background()
	v, err := s.store.Get(ctx, "poultryCounts_test")
	s.NoError(err)
	s.Nil(v)

	s.NoError(s.store.Set(ctx, "poultryCounts_test", []byte(`[{"count":2}]`)))
	v, err = s.store.Get(ctx, "poultryCounts_test")
	s.NoError(err)
	s.Equal(`[{"count":2}]`, string(v))

	s.NoError(s.store.Delete(ctx, "poultryCounts_test"))
	v, err = s.store.Get(ctx, "poultryCounts_test")
	s.NoError(err)
	s.Nil(v)
}

func (s *KVStoreTestSuite) TestKeyNamespace() {
	s.Equal("_coopcount_kv_poultryCounts", getKeyName("poultryCounts"))
}
