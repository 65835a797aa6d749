// Package tracking keeps per-topic read state for live discovery lists and
// fans out newly published topics to channels that asked for them.
package tracking

import (
	"sort"
	"sync"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

// incomingSource marks topic state contributed by Publish rather than by a
// synced list.
const incomingSource = "\x00incoming"

// TopicState is the tracked read state of one topic.
type TopicState struct {
	TopicID            int64 `json:"topic_id"`
	CategoryID         int64 `json:"category_id"`
	HighestPostNumber  int   `json:"highest_post_number"`
	LastReadPostNumber int   `json:"last_read_post_number"`
	Unseen             bool  `json:"unseen"`
}

// IsNew reports whether the viewer has never opened the topic.
func (s TopicState) IsNew() bool {
	return s.Unseen
}

// IsUnread reports whether the viewer has read part of the topic but not its
// latest post.
func (s TopicState) IsUnread() bool {
	return !s.Unseen && s.LastReadPostNumber > 0 && s.LastReadPostNumber < s.HighestPostNumber
}

// CategoryCounts aggregates new and unread topics in one category.
type CategoryCounts struct {
	CategoryID int64 `json:"category_id"`
	New        int   `json:"new"`
	Unread     int   `json:"unread"`
}

// NewTopic announces a topic published after lists were built.
type NewTopic struct {
	TopicID           int64 `json:"topic_id"`
	CategoryID        int64 `json:"category_id"`
	HighestPostNumber int   `json:"highest_post_number"`
}

// Incoming is delivered to listeners for every accepted NewTopic.
type Incoming struct {
	TopicID    int64    `json:"topic_id"`
	CategoryID int64    `json:"category_id"`
	Channels   []string `json:"channels"`
}

// Registrar is the view of State available inside Register. Its methods run
// within the caller's critical section.
type Registrar interface {
	Sync(list *domain.CategoryList, channel string)
	TrackIncoming(channel string)
}

type topicEntry struct {
	state   TopicState
	sources map[string]struct{}
}

type channelState struct {
	armed       bool
	listed      map[int64]struct{}
	incoming    []int64
	incomingSet map[int64]struct{}
}

// State is the process-wide tracking state shared by every live list.
type State struct {
	mu           sync.Mutex
	topics       map[int64]*topicEntry
	channels     map[string]*channelState
	listeners    map[uint64]func(Incoming)
	nextListener uint64
}

// NewState returns empty tracking state.
func NewState() *State {
	return &State{
		topics:    make(map[int64]*topicEntry),
		channels:  make(map[string]*channelState),
		listeners: make(map[uint64]func(Incoming)),
	}
}

// Register runs fn with exclusive access to the state, so everything fn does
// through the Registrar is observed by other goroutines as one step.
func (s *State) Register(fn func(Registrar)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(locked{s})
}

// Sync records the read state of every topic in list under channel and drops
// topics the channel previously contributed that the list no longer holds.
func (s *State) Sync(list *domain.CategoryList, channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked(list, channel)
}

// TrackIncoming arms channel to accumulate newly published topics. Arming an
// armed channel has no effect.
func (s *State) TrackIncoming(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackIncomingLocked(channel)
}

// Untrack forgets channel and the topic state only it contributed.
func (s *State) Untrack(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channel]
	if !ok {
		return
	}
	for topicID := range ch.listed {
		s.dropSourceLocked(topicID, channel)
	}
	delete(s.channels, channel)
}

// Publish records a newly published topic, adds it to the incoming set of
// every armed channel and notifies listeners. Topics the state already knows
// are not announced again.
func (s *State) Publish(topic NewTopic) bool {
	s.mu.Lock()
	if _, known := s.topics[topic.TopicID]; known {
		s.mu.Unlock()
		return false
	}
	s.topics[topic.TopicID] = &topicEntry{
		state: TopicState{
			TopicID:           topic.TopicID,
			CategoryID:        topic.CategoryID,
			HighestPostNumber: topic.HighestPostNumber,
			Unseen:            true,
		},
		sources: map[string]struct{}{incomingSource: {}},
	}

	accepted := make([]string, 0, len(s.channels))
	for name, ch := range s.channels {
		if !ch.armed {
			continue
		}
		if _, dup := ch.incomingSet[topic.TopicID]; dup {
			continue
		}
		ch.incomingSet[topic.TopicID] = struct{}{}
		ch.incoming = append(ch.incoming, topic.TopicID)
		accepted = append(accepted, name)
	}
	sort.Strings(accepted)

	listeners := make([]func(Incoming), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	event := Incoming{TopicID: topic.TopicID, CategoryID: topic.CategoryID, Channels: accepted}
	for _, fn := range listeners {
		fn(event)
	}
	return true
}

// Subscribe registers fn for incoming notifications and returns a func that
// removes it. fn runs on the publisher's goroutine and must not block.
func (s *State) Subscribe(fn func(Incoming)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// IncomingTopicIDs returns the channel's accumulated incoming topics in
// arrival order.
func (s *State) IncomingTopicIDs(channel string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channel]
	if !ok {
		return []int64{}
	}
	return append([]int64{}, ch.incoming...)
}

// ResetIncoming clears the channel's incoming set, typically after its list
// merged them with LoadBefore.
func (s *State) ResetIncoming(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channel]
	if !ok {
		return
	}
	ch.incoming = nil
	ch.incomingSet = make(map[int64]struct{})
}

// IsTracking reports whether channel is armed for incoming topics.
func (s *State) IsTracking(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channel]
	return ok && ch.armed
}

// Topic returns the tracked state of one topic.
func (s *State) Topic(topicID int64) (TopicState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.topics[topicID]
	if !ok {
		return TopicState{}, false
	}
	return entry.state, true
}

// Counts returns new and unread counters per category, ordered by category ID.
func (s *State) Counts() []CategoryCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory := make(map[int64]*CategoryCounts)
	for _, entry := range s.topics {
		counts, ok := byCategory[entry.state.CategoryID]
		if !ok {
			counts = &CategoryCounts{CategoryID: entry.state.CategoryID}
			byCategory[entry.state.CategoryID] = counts
		}
		if entry.state.IsNew() {
			counts.New++
		}
		if entry.state.IsUnread() {
			counts.Unread++
		}
	}
	out := make([]CategoryCounts, 0, len(byCategory))
	for _, counts := range byCategory {
		out = append(out, *counts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

func (s *State) syncLocked(list *domain.CategoryList, channel string) {
	ch := s.channelLocked(channel)
	listed := make(map[int64]struct{})
	if list != nil {
		for _, topic := range list.Topics() {
			listed[topic.ID] = struct{}{}
			entry, ok := s.topics[topic.ID]
			if !ok {
				entry = &topicEntry{sources: make(map[string]struct{})}
				s.topics[topic.ID] = entry
			}
			entry.state = TopicState{
				TopicID:            topic.ID,
				CategoryID:         topic.CategoryID,
				HighestPostNumber:  topic.HighestPostNumber,
				LastReadPostNumber: topic.LastReadPostNumber,
				Unseen:             topic.Unseen,
			}
			entry.sources[channel] = struct{}{}
		}
	}
	for topicID := range ch.listed {
		if _, still := listed[topicID]; !still {
			s.dropSourceLocked(topicID, channel)
		}
	}
	ch.listed = listed
}

func (s *State) trackIncomingLocked(channel string) {
	ch := s.channelLocked(channel)
	if ch.armed {
		return
	}
	ch.armed = true
	ch.incoming = nil
	ch.incomingSet = make(map[int64]struct{})
}

func (s *State) channelLocked(channel string) *channelState {
	ch, ok := s.channels[channel]
	if !ok {
		ch = &channelState{
			listed:      make(map[int64]struct{}),
			incomingSet: make(map[int64]struct{}),
		}
		s.channels[channel] = ch
	}
	return ch
}

func (s *State) dropSourceLocked(topicID int64, source string) {
	entry, ok := s.topics[topicID]
	if !ok {
		return
	}
	delete(entry.sources, source)
	if len(entry.sources) == 0 {
		delete(s.topics, topicID)
	}
}

type locked struct{ s *State }

func (l locked) Sync(list *domain.CategoryList, channel string) { l.s.syncLocked(list, channel) }
func (l locked) TrackIncoming(channel string)                   { l.s.trackIncomingLocked(channel) }
