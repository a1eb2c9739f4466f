package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

func newStore(t *testing.T, ttl time.Duration) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = client.Close() })
	return NewStateStore(client, ttl), mr
}

func TestStateStore_SaveLoad(t *testing.T) {
	s, _ := newStore(t, 0)
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Save(ctx, "A", bcs.ShutterAngle{Degrees: 180}))
	require.NoError(t, s.Save(ctx, "A", bcs.WhiteBalance{Temperature: 5600, Tint: 10}))
	require.NoError(t, s.Save(ctx, "A", bcs.ShutterAngle{Degrees: 172.8}))

	st, err := s.Load(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, st.Values, 2)
	require.NotNil(t, st.UpdatedAt)
	assert.True(t, st.UpdatedAt.Equal(fixed))

	var angle bcs.ShutterAngle
	require.NoError(t, json.Unmarshal(st.Values["shutter_angle"], &angle))
	assert.Equal(t, 172.8, angle.Degrees)

	var wb bcs.WhiteBalance
	require.NoError(t, json.Unmarshal(st.Values["white_balance"], &wb))
	assert.Equal(t, bcs.WhiteBalance{Temperature: 5600, Tint: 10}, wb)
}

func TestStateStore_UnparsedField(t *testing.T) {
	s, _ := newStore(t, 0)
	ctx := context.Background()
	v := bcs.Unparsed{Addr: bcs.Address{Category: 10, Parameter: 1}, DataType: bcs.TypeInt8, Payload: []byte{2}}
	require.NoError(t, s.Save(ctx, "B", v))

	st, err := s.Load(ctx, "B")
	require.NoError(t, err)
	assert.Contains(t, st.Values, "unparsed.10.1")
}

func TestStateStore_TTLAndClear(t *testing.T) {
	s, mr := newStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "A", bcs.Gain{DB: 6}))
	assert.Equal(t, time.Minute, mr.TTL("camera:A:state"))

	require.NoError(t, s.Clear(ctx, "A"))
	st, err := s.Load(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, st.Values)
	assert.Nil(t, st.UpdatedAt)
}

func TestStateStore_ServerDown(t *testing.T) {
	s, mr := newStore(t, 0)
	mr.Close()
	assert.Error(t, s.Save(context.Background(), "A", bcs.Gain{DB: 1}))
}

func TestStateStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "studio1:")
	defer client.Close()
	assert.Equal(t, "studio1:A:state", client.Key("A", "state"))

	s := NewStateStore(client, 0)
	require.NoError(t, s.Save(context.Background(), "A", bcs.Gain{DB: 3}))
	assert.True(t, mr.Exists("studio1:A:state"))
	assert.False(t, mr.Exists("camera:A:state"))
}
