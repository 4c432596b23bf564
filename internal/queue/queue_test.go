package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestQueue_EnqueuePoll(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{EventID: "evt-1", RequestID: "req-1"}))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	jobs, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "evt-1", jobs[0].EventID)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, depth)
}

func TestQueue_PollIsExclusive(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{EventID: "evt-1", RequestID: "req-1"}))
	require.NoError(t, q.Enqueue(ctx, Job{EventID: "evt-2", RequestID: "req-2"}))

	first, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, second)
}
