package realtime

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	KindTracking      = "tracking"
	KindNotifications = "notifications"
)

// Topic is a broadcast channel identity. Tracking topics are public (holding
// the tracking number is enough); notifications topics belong to one user.
type Topic struct {
	Kind string
	Key  string
}

func TrackingTopic(trackingNumber string) Topic {
	return Topic{Kind: KindTracking, Key: trackingNumber}
}

func NotificationsTopic(userID uint64) Topic {
	return Topic{Kind: KindNotifications, Key: strconv.FormatUint(userID, 10)}
}

func (t Topic) String() string {
	return t.Kind + ":" + t.Key
}

func ParseTopic(s string) (Topic, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return Topic{}, errors.Errorf("bad topic %q", s)
	}
	switch kind {
	case KindTracking, KindNotifications:
		return Topic{Kind: kind, Key: key}, nil
	}
	return Topic{}, errors.Errorf("unknown topic kind %q", kind)
}

// Authorized reports whether a principal may join the topic. Tracking topics
// allow anonymous access; a notifications topic only admits its own user.
func (t Topic) Authorized(userID *uint64) bool {
	if t.Kind == KindTracking {
		return true
	}
	if userID == nil {
		return false
	}
	return t.Key == strconv.FormatUint(*userID, 10)
}
