package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"wisdom-empire/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.Run(ctx) }()
	return hub, cancel, errc
}

func TestHub_BroadcastsCompletedDonations(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, cancel, errc := startHub(t)

	a := &Client{Hub: hub, Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, Send: make(chan []byte, 4)}
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	done := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	hub.DonationCompleted(models.DonationRecord{
		ID: "d1", Name: "Ada", Email: "ada@example.com", Tier: "Wisdom Patron",
		Amount: decimal.NewFromInt(20), CompletedAt: &done,
	})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			var alert map[string]any
			require.NoError(t, json.Unmarshal(msg, &alert))
			assert.Equal(t, "Ada", alert["donor_name"])
			assert.Equal(t, "20.00", alert["amount"])
			assert.NotContains(t, alert, "email")
		case <-time.After(time.Second):
			t.Fatal("no alert delivered")
		}
	}

	hub.Unregister(a)
	_, open := <-a.Send
	assert.False(t, open)

	cancel()
	require.NoError(t, <-errc)
	_, open = <-b.Send
	assert.False(t, open)

	assert.False(t, hub.Register(&Client{Hub: hub, Send: make(chan []byte)}))
	hub.Unregister(b)
	hub.DonationCompleted(models.DonationRecord{ID: "late"})
}

func TestHub_DropsSlowClients(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, cancel, errc := startHub(t)
	defer func() {
		cancel()
		<-errc
	}()

	slow := &Client{Hub: hub, Send: make(chan []byte, 1)}
	slow.Send <- []byte("backlog")
	fast := &Client{Hub: hub, Send: make(chan []byte, 1)}
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))

	hub.DonationCompleted(models.DonationRecord{ID: "d1", Name: "Ada", Amount: decimal.NewFromInt(5)})
	select {
	case <-fast.Send:
	case <-time.After(time.Second):
		t.Fatal("fast client got nothing")
	}
	// The hub only accepts a registration once it has finished the broadcast.
	require.True(t, hub.Register(&Client{Hub: hub, Send: make(chan []byte, 1)}))

	assert.Equal(t, []byte("backlog"), <-slow.Send)
	_, open := <-slow.Send
	assert.False(t, open)
}
