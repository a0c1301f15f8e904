package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "profile:u-1", ProfileChannel("u-1"))
	assert.Equal(t, "ticket:t-9", TicketChannel("t-9"))
}

func TestNopHub(t *testing.T) {
	var h Hub = Nop{}
	h.Publish(context.Background(), ProfileChannel("u-1"), map[string]string{"a": "b"})

	sub, err := h.Subscribe(context.Background(), TicketChannel("t-1"))
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, ErrNoHub)
}

func TestNewRedisHubRejectsBadURL(t *testing.T) {
	_, err := NewRedisHub(context.Background(), "not a url", nil)
	assert.Error(t, err)
}
