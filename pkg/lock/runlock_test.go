package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	held     map[string]string
	setErr   error
	released []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{held: make(map[string]string)}
}

func (f *fakeStore) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, ok := f.held[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.held[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	key := keys[0]
	if f.held[key] == args[0].(string) {
		delete(f.held, key)
		f.released = append(f.released, key)
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRunLock_ExclusiveUntilReleased(t *testing.T) {
	st := newFakeStore()
	l := NewRunLock(st, time.Minute, zap.NewNop())
	ctx := context.Background()

	release, err := l.Acquire(ctx, "me@example.com", "run-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "me@example.com", "run-2")
	assert.ErrorIs(t, err, ErrHeld)

	release()
	assert.Equal(t, []string{Key("me@example.com")}, st.released)

	release2, err := l.Acquire(ctx, "me@example.com", "run-2")
	require.NoError(t, err)
	release2()
}

func TestRunLock_RedisDownDoesNotBlock(t *testing.T) {
	st := newFakeStore()
	st.setErr = errors.New("connection refused")
	l := NewRunLock(st, 0, zap.NewNop())

	release, err := l.Acquire(context.Background(), "me@example.com", "run-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
	assert.Empty(t, st.released)
}
