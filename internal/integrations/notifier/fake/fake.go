package fake

import (
	"context"
	"sync"

	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier"
)

// Sink records notifications in memory. Set Err to simulate sink failures.
type Sink struct {
	mu   sync.Mutex
	sent []notifier.Notification

	Err error
}

func New() *Sink { return &Sink{} }

func (s *Sink) Notify(ctx context.Context, n notifier.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *Sink) Sent() []notifier.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifier.Notification, len(s.sent))
	copy(out, s.sent)
	return out
}
