package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := Connect(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Close()
		SetRedisClient(nil)
	})
	return rc, mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "plan:day:12", Key("plan", "day", "12"))
	assert.Equal(t, "plan", Key("plan"))
}

func TestJSONRoundTrip(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Day   int      `json:"day"`
		Books []string `json:"books"`
	}
	SetJSON(ctx, rc, "plan:day:1", payload{Day: 1, Books: []string{"Genesis"}}, time.Minute)

	var got payload
	require.True(t, GetJSON(ctx, rc, "plan:day:1", &got))
	assert.Equal(t, 1, got.Day)

	mr.FastForward(2 * time.Minute)
	assert.False(t, GetJSON(ctx, rc, "plan:day:1", &got))
}

func TestGetJSONNilClient(t *testing.T) {
	var out map[string]string
	assert.False(t, GetJSON(context.Background(), nil, "x", &out))
	SetJSON(context.Background(), nil, "x", out, time.Second)
}

func TestDeletePattern(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.SetEx(ctx, "response:/api/v1/community/categories", "a", time.Minute))
	require.NoError(t, rc.SetEx(ctx, "response:/api/v1/community/discussions:page=1", "b", time.Minute))
	require.NoError(t, rc.SetEx(ctx, "plan:day:1", "c", time.Minute))

	n, err := rc.DeletePattern(ctx, "response:/api/v1/community/*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("plan:day:1"))
}

func TestListOps(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.LPush(ctx, "q", "a", "b"))
	n, err := rc.LLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, err := rc.BRPop(ctx, 100*time.Millisecond, "q")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestConnectSetsGlobal(t *testing.T) {
	rc, _ := newTestRedis(t)
	assert.Same(t, rc, GetRedisClient())
}
