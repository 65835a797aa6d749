package categories

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
)

func TestAssembleRequiresCategoryList(t *testing.T) {
	t.Parallel()

	_, err := NewAssembler(nil).Assemble(topicsPayload(1), domain.MergeContext{})
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestAssembleCopiesFlagsAndBindsMerger(t *testing.T) {
	t.Parallel()

	payload := categoriesPayload(1).Overlay(topicsPayload(3, 4))
	payload.CategoryList.CanCreateCategory = false

	var gotParams url.Values
	fetcher := &fakeFetcher{latest: func(_ []int64, params url.Values) (domain.Payload, error) {
		gotParams = params
		return topicsPayload(9), nil
	}}
	merge := domain.MergeContext{SessionID: "s1", Params: url.Values{"order": {"created"}}}

	list, err := NewAssembler(NewMerger(fetcher, nil)).Assemble(payload, merge)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if list.CanCreateCategory() || !list.CanCreateTopic() {
		t.Fatalf("flags = %v/%v", list.CanCreateCategory(), list.CanCreateTopic())
	}

	if err := list.LoadBefore(context.Background(), []int64{9}, false); err != nil {
		t.Fatalf("load before: %v", err)
	}
	if gotParams.Get("order") != "created" {
		t.Fatalf("params = %v", gotParams)
	}
	if !reflect.DeepEqual(list.TopicIDs(), []int64{9, 3, 4}) {
		t.Fatalf("topics = %v", list.TopicIDs())
	}
}

func TestBridgeSyncsBeforeArmingInOneStep(t *testing.T) {
	t.Parallel()

	tracker := &recordingTracker{}
	list := domain.NewCategoryList(domain.ListInput{})
	bridge := NewBridge(tracker)
	bridge.Attach(list, ChannelCategories)
	bridge.Attach(nil, ChannelCategories)

	want := []string{"begin", "sync:categories", "track:categories", "end"}
	if !reflect.DeepEqual(tracker.steps, want) {
		t.Fatalf("steps = %v, want %v", tracker.steps, want)
	}
}

func TestBridgeRegistersWithTrackingState(t *testing.T) {
	t.Parallel()

	state := tracking.NewState()
	list := domain.NewCategoryList(domain.ListInput{Topics: []*domain.Topic{{ID: 1, CategoryID: 2, Unseen: true}}})
	bridge := NewBridge(state)

	bridge.Attach(list, ChannelCategories)
	bridge.Attach(list, ChannelCategories)
	state.Publish(tracking.NewTopic{TopicID: 5, CategoryID: 2})

	if got := state.IncomingTopicIDs(ChannelCategories); !reflect.DeepEqual(got, []int64{5}) {
		t.Fatalf("incoming = %v", got)
	}
	counts := state.Counts()
	if len(counts) != 1 || counts[0].New != 2 {
		t.Fatalf("counts = %+v", counts)
	}
}
