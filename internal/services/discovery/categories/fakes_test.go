package categories

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage/memory"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
)

var errUpstreamDown = apperrors.Wrap(apperrors.CodeNetworkFailure, "upstream request", errors.New("connection refused"))

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string

	combined      domain.Payload
	combinedErr   error
	categories    domain.Payload
	categoriesErr error
	latest        func(topicIDs []int64, params url.Values) (domain.Payload, error)
}

func (f *fakeFetcher) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) CategoriesAndTopics(_ context.Context, filter string) (domain.Payload, error) {
	f.record("categories_and_" + filter)
	return f.combined, f.combinedErr
}

func (f *fakeFetcher) Categories(context.Context) (domain.Payload, error) {
	f.record("categories")
	return f.categories, f.categoriesErr
}

func (f *fakeFetcher) LatestByIDs(_ context.Context, topicIDs []int64, params url.Values) (domain.Payload, error) {
	f.record("latest")
	if f.latest == nil {
		return domain.Payload{}, nil
	}
	return f.latest(topicIDs, params)
}

type fakeTopTags struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeTopTags) SetTopTags(tags []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tags)
}

type fakeSnapshots struct {
	mu    sync.Mutex
	slots map[string]*domain.CategoryList
	err   error
}

func (f *fakeSnapshots) SetSlot(sessionID, slot string, list *domain.CategoryList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.slots == nil {
		f.slots = make(map[string]*domain.CategoryList)
	}
	f.slots[sessionID+"/"+slot] = list
	return nil
}

type failingStore struct {
	storage.PreloadStore
}

func (failingStore) Take(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store offline")
}

func (failingStore) Remove(context.Context, string) error {
	return errors.New("store offline")
}

type recordingTracker struct {
	mu    sync.Mutex
	steps []string
}

func (r *recordingTracker) Register(fn func(tracking.Registrar)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, "begin")
	fn(recordingRegistrar{r})
	r.steps = append(r.steps, "end")
}

type recordingRegistrar struct{ r *recordingTracker }

func (rr recordingRegistrar) Sync(_ *domain.CategoryList, channel string) {
	rr.r.steps = append(rr.r.steps, "sync:"+channel)
}

func (rr recordingRegistrar) TrackIncoming(channel string) {
	rr.r.steps = append(rr.r.steps, "track:"+channel)
}

func categoriesPayload(categoryIDs ...int64) domain.Payload {
	records := make([]domain.CategoryRecord, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		records = append(records, domain.CategoryRecord{ID: id, Name: "category"})
	}
	return domain.Payload{CategoryList: &domain.CategoryListSection{
		CanCreateCategory: true,
		CanCreateTopic:    true,
		Categories:        records,
	}}
}

func topicsPayload(topicIDs ...int64) domain.Payload {
	records := make([]domain.TopicRecord, 0, len(topicIDs))
	for _, id := range topicIDs {
		records = append(records, domain.TopicRecord{ID: id, Title: "fetched"})
	}
	return domain.Payload{TopicList: &domain.TopicListSection{Topics: records}}
}

func putPayload(t *testing.T, store *memory.Store, key string, payload domain.Payload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := store.Put(context.Background(), key, raw); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func categoryIDs(list *domain.CategoryList) []int64 {
	ids := make([]int64, 0)
	for _, category := range list.Categories() {
		ids = append(ids, category.ID)
	}
	return ids
}
