package domain

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Category is one category row of a discovery list.
type Category struct {
	ID                int64
	Name              string
	Slug              string
	Color             string
	TextColor         string
	Description       string
	DescriptionText   string
	TopicCount        int
	PostCount         int
	Position          int
	ParentCategoryID  int64
	SubcategoryIDs    []int64
	ReadRestricted    bool
	NotificationLevel int
	Permission        int
}

// Topic is one topic row of a discovery list.
//
// Highlight is set only by LoadBefore when the topic is inserted; the
// rendering layer clears it.
type Topic struct {
	ID                 int64
	Title              string
	FancyTitle         string
	Slug               string
	CategoryID         int64
	PostsCount         int
	ReplyCount         int
	Views              int
	LikeCount          int
	HighestPostNumber  int
	LastReadPostNumber int
	Unseen             bool
	Pinned             bool
	Visible            bool
	Closed             bool
	Archived           bool
	Tags               []string
	CreatedAt          time.Time
	BumpedAt           time.Time
	LastPostedAt       time.Time
	Posters            []Poster
	Highlight          bool
}

// Poster is a resolved topic participant.
type Poster struct {
	UserID         int64
	Username       string
	AvatarTemplate string
	Description    string
	Extras         string
}

// MergeContext is what a list's load-before operation needs beyond the list
// itself: the session that owns the view and the query parameters the list
// was originally built with.
type MergeContext struct {
	SessionID string
	Params    url.Values
}

// BeforeLoader merges newer topics into a list. The categories package
// provides the implementation bound at assembly time.
type BeforeLoader interface {
	LoadBefore(ctx context.Context, list *CategoryList, topicIDs []int64, storeInSession bool) error
}

// ListInput describes a freshly assembled list.
type ListInput struct {
	Categories        []Category
	Topics            []*Topic
	CanCreateCategory bool
	CanCreateTopic    bool
	Loader            BeforeLoader
	Merge             MergeContext
}

// CategoryList is the live category and topic collection backing one
// discovery view. Topic IDs are unique within the list at all times.
//
// Reads take a shared lock; the merge engine mutates topics in place under
// the write lock and serializes whole merges with MergeLock.
type CategoryList struct {
	mu                sync.RWMutex
	categories        []Category
	topics            []*Topic
	canCreateCategory bool
	canCreateTopic    bool

	mergeMu   sync.Mutex
	loader    BeforeLoader
	merge     MergeContext
	discarded atomic.Bool
}

// NewCategoryList builds a list, dropping any duplicate topic IDs after the
// first occurrence.
func NewCategoryList(input ListInput) *CategoryList {
	topics := make([]*Topic, 0, len(input.Topics))
	seen := make(map[int64]struct{}, len(input.Topics))
	for _, topic := range input.Topics {
		if topic == nil {
			continue
		}
		if _, dup := seen[topic.ID]; dup {
			continue
		}
		seen[topic.ID] = struct{}{}
		topics = append(topics, topic)
	}
	categories := append([]Category(nil), input.Categories...)
	if categories == nil {
		categories = []Category{}
	}
	return &CategoryList{
		categories:        categories,
		topics:            topics,
		canCreateCategory: input.CanCreateCategory,
		canCreateTopic:    input.CanCreateTopic,
		loader:            input.Loader,
		merge:             MergeContext{SessionID: input.Merge.SessionID, Params: cloneValues(input.Merge.Params)},
	}
}

// Categories returns a copy of the category sequence.
func (l *CategoryList) Categories() []Category {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Category(nil), l.categories...)
}

// Topics returns the current topic sequence. The returned slice is a copy;
// the topics are shared with the list.
func (l *CategoryList) Topics() []*Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Topic(nil), l.topics...)
}

// TopicIDs returns the IDs of the current topic sequence in order.
func (l *CategoryList) TopicIDs() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]int64, 0, len(l.topics))
	for _, topic := range l.topics {
		ids = append(ids, topic.ID)
	}
	return ids
}

// CanCreateCategory reports the viewer's category creation permission.
func (l *CategoryList) CanCreateCategory() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.canCreateCategory
}

// CanCreateTopic reports the viewer's topic creation permission.
func (l *CategoryList) CanCreateTopic() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.canCreateTopic
}

// MergeContext returns the context bound at assembly time.
func (l *CategoryList) MergeContext() MergeContext {
	return MergeContext{SessionID: l.merge.SessionID, Params: cloneValues(l.merge.Params)}
}

// LoadBefore fetches the given topics and folds them into the front of the
// list. See the categories package for the merge rules.
func (l *CategoryList) LoadBefore(ctx context.Context, topicIDs []int64, storeInSession bool) error {
	if l.loader == nil {
		return ErrLoaderNotConfigured
	}
	return l.loader.LoadBefore(ctx, l, topicIDs, storeInSession)
}

// MergeLock serializes merges against this list and returns the unlock func.
func (l *CategoryList) MergeLock() func() {
	l.mergeMu.Lock()
	return l.mergeMu.Unlock
}

// Discard marks the list's view as torn down. In-flight merges drop their
// results instead of applying them.
func (l *CategoryList) Discard() {
	l.discarded.Store(true)
}

// Discarded reports whether Discard was called.
func (l *CategoryList) Discarded() bool {
	return l.discarded.Load()
}

// RemoveTopics removes every topic whose ID is in ids and returns how many
// were removed. Order of the remaining topics is preserved.
func (l *CategoryList) RemoveTopics(ids map[int64]struct{}) int {
	if len(ids) == 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.topics[:0]
	removed := 0
	for _, topic := range l.topics {
		if _, drop := ids[topic.ID]; drop {
			removed++
			continue
		}
		kept = append(kept, topic)
	}
	for i := len(kept); i < len(l.topics); i++ {
		l.topics[i] = nil
	}
	l.topics = kept
	return removed
}

// InsertNew inserts the topics whose IDs are not already present at the
// front of the list, in the given order, marking each as highlighted.
// Membership is checked under the same lock as the insertion. It returns the
// inserted topics.
func (l *CategoryList) InsertNew(topics []*Topic) []*Topic {
	l.mu.Lock()
	defer l.mu.Unlock()

	present := make(map[int64]struct{}, len(l.topics)+len(topics))
	for _, topic := range l.topics {
		present[topic.ID] = struct{}{}
	}

	inserted := make([]*Topic, 0, len(topics))
	for _, topic := range topics {
		if topic == nil {
			continue
		}
		if _, ok := present[topic.ID]; ok {
			continue
		}
		topic.Highlight = true
		present[topic.ID] = struct{}{}
		inserted = append(inserted, topic)
	}
	if len(inserted) == 0 {
		return inserted
	}

	merged := make([]*Topic, 0, len(inserted)+len(l.topics))
	merged = append(merged, inserted...)
	merged = append(merged, l.topics...)
	l.topics = merged
	return inserted
}

func cloneValues(values url.Values) url.Values {
	if values == nil {
		return url.Values{}
	}
	cloned := make(url.Values, len(values))
	for key, vals := range values {
		cloned[key] = append([]string(nil), vals...)
	}
	return cloned
}
