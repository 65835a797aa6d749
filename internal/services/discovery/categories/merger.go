package categories

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/session"
)

// Merger folds newly published topics into live lists.
type Merger struct {
	fetcher   Fetcher
	snapshots SnapshotStore
	tracer    trace.Tracer
}

// NewMerger creates a merger. snapshots may be nil, in which case snapshot
// requests are ignored.
func NewMerger(fetcher Fetcher, snapshots SnapshotStore) *Merger {
	return &Merger{
		fetcher:   fetcher,
		snapshots: snapshots,
		tracer:    otel.Tracer(tracerName),
	}
}

// LoadBefore refreshes topicIDs in list.
//
// Topics already listed under those IDs are removed, the IDs are fetched
// with the list's original query parameters, and every fetched topic the list
// does not hold is highlighted and inserted at the front in fetch order.
// Merges against one list run one at a time. Removals stand when the fetch
// fails. A list discarded while the fetch is in flight keeps the removals,
// drops the fetched topics and reports ErrListDiscarded. When storeInSession
// is set the list is stored by reference in the session's topicList slot.
func (m *Merger) LoadBefore(ctx context.Context, list *domain.CategoryList, topicIDs []int64, storeInSession bool) error {
	if list == nil {
		return fmt.Errorf("load before: list is required")
	}
	ctx, span := m.tracer.Start(ctx, "categories.load_before", trace.WithAttributes(requestAttributes(ctx,
		attribute.Int("discovery.topic_ids", len(topicIDs)),
		attribute.Bool("discovery.store_in_session", storeInSession),
	)...))
	defer span.End()

	inserted, err := m.merge(ctx, list, topicIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("discovery.inserted", inserted))

	if storeInSession {
		m.storeSnapshot(list)
	}
	return nil
}

func (m *Merger) merge(ctx context.Context, list *domain.CategoryList, topicIDs []int64) (int, error) {
	unlock := list.MergeLock()
	defer unlock()

	if list.Discarded() {
		return 0, domain.ErrListDiscarded
	}

	refresh := make(map[int64]struct{}, len(topicIDs))
	for _, topicID := range topicIDs {
		refresh[topicID] = struct{}{}
	}
	list.RemoveTopics(refresh)

	merge := list.MergeContext()
	payload, err := m.fetcher.LatestByIDs(ctx, topicIDs, merge.Params)
	if err != nil {
		return 0, fmt.Errorf("fetch topics %v: %w", topicIDs, err)
	}
	if list.Discarded() {
		log.Printf("discovery: list discarded during load before, dropping %d fetched topics", len(topicsOf(payload)))
		return 0, domain.ErrListDiscarded
	}

	inserted := list.InsertNew(domain.TopicsFrom(payload))
	return len(inserted), nil
}

func (m *Merger) storeSnapshot(list *domain.CategoryList) {
	if m.snapshots == nil {
		return
	}
	sessionID := list.MergeContext().SessionID
	if err := m.snapshots.SetSlot(sessionID, session.SlotTopicList, list); err != nil {
		log.Printf("discovery: store %s snapshot: %v", session.SlotTopicList, err)
	}
}

func topicsOf(payload domain.Payload) []domain.TopicRecord {
	if payload.TopicList == nil {
		return nil
	}
	return payload.TopicList.Topics
}

var _ domain.BeforeLoader = (*Merger)(nil)
