package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/wagergenie/models"
)

func TestHubDeliversOnlyToSameUser(t *testing.T) {
	h := NewHub()
	alice, cancelA := h.Subscribe(1)
	defer cancelA()
	bob, cancelB := h.Subscribe(2)
	defer cancelB()

	require.NoError(t, h.Publish(context.Background(), &models.ChatMessage{ID: 10, UserID: 1, Role: models.RoleUser, Content: "hi"}))

	select {
	case got := <-alice:
		assert.Equal(t, int64(10), got.ID)
	default:
		t.Fatal("subscriber of user 1 got nothing")
	}

	select {
	case got := <-bob:
		t.Fatalf("user 2 received %+v", got)
	default:
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	for i := 0; i < Buffer+5; i++ {
		h.Broadcast(models.ChatMessage{ID: int64(i), UserID: 1})
	}
	assert.Len(t, ch, Buffer)

	first := <-ch
	assert.Equal(t, int64(0), first.ID, "arrival order is kept")
}

func TestHubCancel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(3)
	h.Broadcast(models.ChatMessage{ID: 1, UserID: 3})
	assert.Len(t, ch, 1)

	cancel()
	cancel()

	msg, open := <-ch
	assert.True(t, open, "buffered message survives cancel")
	assert.Equal(t, int64(1), msg.ID)
	_, open = <-ch
	assert.False(t, open)

	h.Broadcast(models.ChatMessage{UserID: 3})
	h.mu.RLock()
	assert.Empty(t, h.subs)
	h.mu.RUnlock()
}
