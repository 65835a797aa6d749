package categories

import (
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
)

// Bridge registers assembled lists with tracking.
type Bridge struct {
	tracker Tracker
}

// NewBridge creates a bridge over tracker.
func NewBridge(tracker Tracker) *Bridge {
	return &Bridge{tracker: tracker}
}

// Attach syncs list under channel and then arms the channel for incoming
// topics, inside one tracker critical section so no announcement can land
// between the two.
func (b *Bridge) Attach(list *domain.CategoryList, channel string) {
	if b == nil || b.tracker == nil || list == nil {
		return
	}
	b.tracker.Register(func(r tracking.Registrar) {
		r.Sync(list, channel)
		r.TrackIncoming(channel)
	})
}
