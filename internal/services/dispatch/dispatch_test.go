package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/broker/messages"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier/fake"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/stretchr/testify/require"
)

// feedConsumer replays the given values through the handler once.
type feedConsumer struct {
	values    [][]byte
	committed int
}

func (f *feedConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, v := range f.values {
		if err := handler(nil, v); err != nil {
			return err
		}
		f.committed++
	}
	return nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	l.keys = append(l.keys, key)
	return l.allowed, 1, l.err
}

func encode(t *testing.T, msg messages.StatusChanged) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func statusMsg() messages.StatusChanged {
	return messages.StatusChanged{
		PackageID:      7,
		TrackingNumber: "SC0A1B2C3D",
		Status:         models.StatusDelivered,
		OwnerID:        1,
		OwnerEmail:     "u1@example.com",
		RecipientName:  "Ada",
		OccurredAt:     time.Now().UTC(),
	}
}

func TestDispatcher_SendsNotification(t *testing.T) {
	sink := fake.New()
	consumer := &feedConsumer{values: [][]byte{encode(t, statusMsg())}}

	d := New(consumer, sink, nil, 0)
	require.NoError(t, d.Run(context.Background()))

	sent := sink.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "u1@example.com", sent[0].Recipient)
	require.Contains(t, sent[0].Subject, "SC0A1B2C3D")
	require.Equal(t, int64(1), d.Stats().Sent)
	require.Equal(t, 1, consumer.committed)
}

func TestDispatcher_SinkFailureStillCommits(t *testing.T) {
	sink := fake.New()
	sink.Err = models.ErrSinkUnavailable
	consumer := &feedConsumer{values: [][]byte{encode(t, statusMsg())}}

	d := New(consumer, sink, nil, 0)
	require.NoError(t, d.Run(context.Background()))

	require.Equal(t, 1, consumer.committed, "failed notification must not block the feed")
	require.Equal(t, int64(1), d.Stats().Failed)
	require.Zero(t, d.Stats().Sent)
}

func TestDispatcher_MalformedAndMissingRecipientSkipped(t *testing.T) {
	sink := fake.New()
	noEmail := statusMsg()
	noEmail.OwnerEmail = ""
	consumer := &feedConsumer{values: [][]byte{
		[]byte("{broken"),
		encode(t, noEmail),
	}}

	d := New(consumer, sink, nil, 0)
	require.NoError(t, d.Run(context.Background()))

	require.Empty(t, sink.Sent())
	require.Equal(t, 2, consumer.committed)
	require.Equal(t, int64(1), d.Stats().Malformed)
	require.Equal(t, int64(1), d.Stats().Skipped)
}

func TestDispatcher_Throttles(t *testing.T) {
	sink := fake.New()
	rl := &fakeLimiter{allowed: false}
	consumer := &feedConsumer{values: [][]byte{encode(t, statusMsg())}}

	d := New(consumer, sink, rl, 30)
	require.NoError(t, d.Run(context.Background()))

	require.Empty(t, sink.Sent())
	require.Equal(t, int64(1), d.Stats().Throttled)
	require.Equal(t, []string{"notify:u1@example.com"}, rl.keys)
}

func TestDispatcher_LimiterFailureFailsOpen(t *testing.T) {
	sink := fake.New()
	rl := &fakeLimiter{err: context.DeadlineExceeded}
	consumer := &feedConsumer{values: [][]byte{encode(t, statusMsg())}}

	d := New(consumer, sink, rl, 30)
	require.NoError(t, d.Run(context.Background()))

	require.Len(t, sink.Sent(), 1)
}
