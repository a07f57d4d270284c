package rabbitmq

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueNames(t *testing.T) {
	tests := []struct {
		delay time.Duration
		want  string
	}{
		{delay: 3 * time.Second, want: "clarenceki.delay.3000"},
		{delay: time.Minute, want: "clarenceki.delay.60000"},
		{delay: 1500 * time.Millisecond, want: "clarenceki.delay.1500"},
		{delay: 250 * time.Millisecond, want: "clarenceki.delay.250"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DelayQueueName("clarenceki", tt.delay))
		})
	}

	// Delays with different TTLs never share a holding queue
	assert.NotEqual(t, DelayQueueName("clarenceki", time.Second), DelayQueueName("clarenceki", 1500*time.Millisecond))
	assert.Equal(t, "clarenceki.buried", BuriedQueueName("clarenceki"))
}

func TestClient_UnknownDelivery(t *testing.T) {
	c := &Client{
		config:  &Config{QueueName: "clarenceki"},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: make(map[uint64]amqp.Delivery),
	}

	err := c.Delete(context.Background(), 9)
	require.ErrorIs(t, err, ErrUnknownDelivery)

	err = c.Bury(context.Background(), 9)
	require.ErrorIs(t, err, ErrUnknownDelivery)
}
