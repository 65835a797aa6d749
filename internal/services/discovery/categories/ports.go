package categories

import (
	"context"
	"net/url"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
)

// ChannelCategories prefixes the tracking channel of every categories view.
const ChannelCategories = "categories"

// SessionChannel is the tracking channel a session's categories view
// registers under. Each viewer gets its own channel so syncing or draining
// one viewer's list never touches another's.
func SessionChannel(sessionID string) string {
	return ChannelCategories + ":" + sessionID
}

const tracerName = "github.com/louisbranch/topicfeed/internal/services/discovery/categories"

// Fetcher issues the upstream requests discovery lists need.
type Fetcher interface {
	CategoriesAndTopics(ctx context.Context, filter string) (domain.Payload, error)
	Categories(ctx context.Context) (domain.Payload, error)
	LatestByIDs(ctx context.Context, topicIDs []int64, params url.Values) (domain.Payload, error)
}

// TopTagsSink receives the site's top tags when a payload carries them.
type TopTagsSink interface {
	SetTopTags(tags []string)
}

// Tracker runs a registration as one critical section.
type Tracker interface {
	Register(fn func(tracking.Registrar))
}

// SnapshotStore keeps named per-session list snapshots.
type SnapshotStore interface {
	SetSlot(sessionID, slot string, list *domain.CategoryList) error
}
