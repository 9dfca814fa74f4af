package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushAndExpire(t *testing.T) {
	q := NewQueue(time.Second, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	var seen []Notice
	unsubscribe := q.Subscribe(func(n Notice) { seen = append(seen, n) })
	defer unsubscribe()

	first := q.Push(KindAuthRequired, "authentication required")
	assert.Equal(t, MessageAuthRequired, first.Message)
	assert.Equal(t, now.Add(time.Second), first.ExpiresAt)

	now = now.Add(600 * time.Millisecond)
	q.Push(KindSyncFailed, MessageSyncFailed)
	require.Len(t, q.Active(), 2)

	now = now.Add(600 * time.Millisecond)
	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, KindSyncFailed, active[0].Kind)
	assert.Len(t, seen, 2)
}

func TestQueue_Dismiss(t *testing.T) {
	q := NewQueue(0, nil)
	assert.Equal(t, DefaultTTL, q.ttl)

	n := q.Push(KindSuccess, MessageAccessGrant)
	assert.True(t, q.Dismiss(n.ID))
	assert.False(t, q.Dismiss(n.ID))
	assert.Empty(t, q.Active())
}
