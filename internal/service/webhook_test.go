package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityNotifier_NotifyLockout(t *testing.T) {
	received := make(chan SecurityEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev SecurityEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			received <- ev
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSecurityNotifier(testLogger(), srv.URL)
	require.True(t, n.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	n.NotifyLockout(ctx, "10.0.0.1", "a@x.com")
	// delivery must survive the request context going away
	cancel()

	select {
	case ev := <-received:
		assert.Equal(t, EventLoginLockout, ev.Event)
		assert.Equal(t, "10.0.0.1", ev.ClientKey)
		assert.Equal(t, "a@x.com", ev.Identifier)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestSecurityNotifier_DisabledWithoutURL(t *testing.T) {
	n := NewSecurityNotifier(testLogger(), "")
	assert.False(t, n.Enabled())
	n.NotifyLockout(context.Background(), "k", "id")
}
