package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

func newTestStore(t *testing.T) (*MessageStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg := &store.Message{OwnerID: "alice", Body: "hello"}
	req.NoError(s.SaveMessage(ctx, msg))
	req.NotEmpty(msg.ID)
	req.False(msg.CreatedAt.IsZero())

	history, err := s.ListMessages(ctx, "alice")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(msg.ID, history[0].ID)
	req.Equal("hello", history[0].Body)
	req.True(msg.CreatedAt.Equal(history[0].CreatedAt))
}

func TestHistoryIsOrderedWithTieBreak(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	frozen := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s.now = func() time.Time { return frozen }
	for _, body := range []string{"a", "b", "c"} {
		req.NoError(s.SaveMessage(ctx, &store.Message{OwnerID: "carl", Body: body}))
	}
	s.now = func() time.Time { return frozen.Add(-time.Second) }
	req.NoError(s.SaveMessage(ctx, &store.Message{OwnerID: "carl", Body: "before"}))
	req.NoError(s.SaveMessage(ctx, &store.Message{OwnerID: "dave", Body: "elsewhere"}))

	history, err := s.ListMessages(ctx, "carl")
	req.NoError(err)

	bodies := make([]string, 0, len(history))
	for _, m := range history {
		bodies = append(bodies, m.Body)
	}
	req.Equal([]string{"before", "a", "b", "c"}, bodies)
}

func TestHistoryStaysNonDecreasingWithinOneMicrosecond(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	// The first save takes the smaller id but reads the later clock value.
	base := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	stamps := []time.Time{base.Add(900 * time.Nanosecond), base.Add(100 * time.Nanosecond)}
	s.now = func() time.Time {
		next := stamps[0]
		stamps = stamps[1:]
		return next
	}

	first := &store.Message{OwnerID: "fay", Body: "first"}
	second := &store.Message{OwnerID: "fay", Body: "second"}
	req.NoError(s.SaveMessage(ctx, first))
	req.NoError(s.SaveMessage(ctx, second))
	req.True(first.CreatedAt.Equal(second.CreatedAt), "stamps within one microsecond collapse")

	history, err := s.ListMessages(ctx, "fay")
	req.NoError(err)
	req.Len(history, 2)
	req.False(history[1].CreatedAt.Before(history[0].CreatedAt))
	req.Equal("first", history[0].Body)
}

func TestEmptyHistory(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)

	history, err := s.ListMessages(context.Background(), "nobody")
	req.NoError(err)
	req.NotNil(history)
	req.Empty(history)
}

func TestStorageFailureIsReported(t *testing.T) {
	req := require.New(t)
	s, mr := newTestStore(t)
	mr.Close()

	err := s.SaveMessage(context.Background(), &store.Message{OwnerID: "eve", Body: "lost"})
	req.Error(err)
}
