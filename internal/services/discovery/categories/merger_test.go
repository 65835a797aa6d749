package categories

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"sync"
	"testing"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/session"
)

func newMergeList(t *testing.T, fetcher *fakeFetcher, snapshots SnapshotStore, topics ...*domain.Topic) *domain.CategoryList {
	t.Helper()
	return domain.NewCategoryList(domain.ListInput{
		Topics: topics,
		Loader: NewMerger(fetcher, snapshots),
		Merge:  domain.MergeContext{SessionID: "session-1", Params: url.Values{"order": {"activity"}}},
	})
}

func staticLatest(payload domain.Payload) func([]int64, url.Values) (domain.Payload, error) {
	return func([]int64, url.Values) (domain.Payload, error) { return payload, nil }
}

func TestLoadBeforePrependsInFetchOrder(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: staticLatest(topicsPayload(1, 2, 3))}
	list := newMergeList(t, fetcher, nil, &domain.Topic{ID: 7}, &domain.Topic{ID: 8})

	if err := list.LoadBefore(context.Background(), []int64{1, 2, 3}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	if got, want := list.TopicIDs(), []int64{1, 2, 3, 7, 8}; !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i, topic := range list.Topics() {
		if topic.Highlight != (i < 3) {
			t.Fatalf("topic %d highlight = %v", topic.ID, topic.Highlight)
		}
	}
}

func TestLoadBeforeTwiceKeepsOneCopy(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: staticLatest(topicsPayload(5))}
	list := newMergeList(t, fetcher, nil, &domain.Topic{ID: 1})

	for i := 0; i < 2; i++ {
		if err := list.LoadBefore(context.Background(), []int64{5}, false); err != nil {
			t.Fatalf("load before %d: %v", i, err)
		}
	}
	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{5, 1}) {
		t.Fatalf("topics = %v", got)
	}
}

func TestLoadBeforeReplacesRefreshedTopic(t *testing.T) {
	t.Parallel()

	fresh := topicsPayload(2)
	fresh.TopicList.Topics[0].Title = "fresh title"
	fresh.TopicList.Topics[0].PostsCount = 12
	fetcher := &fakeFetcher{latest: staticLatest(fresh)}
	list := newMergeList(t, fetcher, nil,
		&domain.Topic{ID: 1, Title: "one"},
		&domain.Topic{ID: 2, Title: "stale title", PostsCount: 3},
	)

	if err := list.LoadBefore(context.Background(), []int64{2}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	topics := list.Topics()
	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Fatalf("topics = %v", got)
	}
	if topics[0].Title != "fresh title" || topics[0].PostsCount != 12 || !topics[0].Highlight {
		t.Fatalf("front topic = %+v", topics[0])
	}
}

func TestLoadBeforeDropsRefreshedTopicsMissingFromFetch(t *testing.T) {
	t.Parallel()

	var gotIDs []int64
	fetcher := &fakeFetcher{latest: func(ids []int64, _ url.Values) (domain.Payload, error) {
		gotIDs = ids
		return topicsPayload(43, 44), nil
	}}
	list := newMergeList(t, fetcher, nil, &domain.Topic{ID: 42}, &domain.Topic{ID: 10})

	if err := list.LoadBefore(context.Background(), []int64{42, 43}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	if !reflect.DeepEqual(gotIDs, []int64{42, 43}) {
		t.Fatalf("fetched ids = %v", gotIDs)
	}
	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{43, 44, 10}) {
		t.Fatalf("topics = %v", got)
	}
	for _, topic := range list.Topics()[:2] {
		if !topic.Highlight {
			t.Fatalf("topic %d should be highlighted", topic.ID)
		}
	}
}

func TestLoadBeforeFetchFailureKeepsRemovals(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: func([]int64, url.Values) (domain.Payload, error) {
		return domain.Payload{}, errUpstreamDown
	}}
	list := newMergeList(t, fetcher, nil, &domain.Topic{ID: 1}, &domain.Topic{ID: 2})

	err := list.LoadBefore(context.Background(), []int64{1}, true)
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("topics = %v", got)
	}
}

func TestLoadBeforeDropsResultWhenListDiscarded(t *testing.T) {
	t.Parallel()

	var list *domain.CategoryList
	fetcher := &fakeFetcher{latest: func([]int64, url.Values) (domain.Payload, error) {
		list.Discard()
		return topicsPayload(9), nil
	}}
	snapshots := &fakeSnapshots{}
	list = newMergeList(t, fetcher, snapshots, &domain.Topic{ID: 1})

	err := list.LoadBefore(context.Background(), []int64{9}, true)
	if !errors.Is(err, domain.ErrListDiscarded) {
		t.Fatalf("expected ErrListDiscarded, got %v", err)
	}
	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{1}) {
		t.Fatalf("topics = %v", got)
	}
	if len(snapshots.slots) != 0 {
		t.Fatal("discarded merge should not store a snapshot")
	}

	if err := list.LoadBefore(context.Background(), []int64{9}, false); !errors.Is(err, domain.ErrListDiscarded) {
		t.Fatalf("expected ErrListDiscarded before fetch, got %v", err)
	}
	if calls := fetcher.Calls(); len(calls) != 1 {
		t.Fatalf("a discarded list should not fetch again, calls = %v", calls)
	}
}

func TestLoadBeforeStoresSnapshotByReference(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: staticLatest(topicsPayload(3))}
	snapshots := &fakeSnapshots{}
	list := newMergeList(t, fetcher, snapshots)

	if err := list.LoadBefore(context.Background(), []int64{3}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	if len(snapshots.slots) != 0 {
		t.Fatal("snapshot stored without being requested")
	}

	if err := list.LoadBefore(context.Background(), []int64{3}, true); err != nil {
		t.Fatalf("load before: %v", err)
	}
	stored := snapshots.slots["session-1/"+session.SlotTopicList]
	if stored != list {
		t.Fatal("expected the live list to be stored by reference")
	}

	fetcher.latest = staticLatest(topicsPayload(4))
	if err := list.LoadBefore(context.Background(), []int64{4}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	if got := stored.TopicIDs(); !reflect.DeepEqual(got, []int64{4, 3}) {
		t.Fatalf("snapshot should observe later merges, got %v", got)
	}
}

func TestLoadBeforeSnapshotFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: staticLatest(topicsPayload(3))}
	list := newMergeList(t, fetcher, &fakeSnapshots{err: session.ErrNotFound})

	if err := list.LoadBefore(context.Background(), []int64{3}, true); err != nil {
		t.Fatalf("load before: %v", err)
	}
}

func TestConcurrentLoadBeforeKeepsIDsUnique(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{latest: staticLatest(topicsPayload(1, 2, 3))}
	list := newMergeList(t, fetcher, nil, &domain.Topic{ID: 100})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- list.LoadBefore(context.Background(), []int64{1, 2, 3}, false)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("load before: %v", err)
		}
	}

	if got := list.TopicIDs(); !reflect.DeepEqual(got, []int64{1, 2, 3, 100}) {
		t.Fatalf("topics = %v", got)
	}
}

func TestLoadBeforeRequiresList(t *testing.T) {
	t.Parallel()

	if err := NewMerger(&fakeFetcher{}, nil).LoadBefore(context.Background(), nil, nil, false); err == nil {
		t.Fatal("expected error for nil list")
	}
}
