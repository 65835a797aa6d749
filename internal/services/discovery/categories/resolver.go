package categories

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/topicfeed/internal/platform/timeouts"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
)

// Resolver picks the payload a new list is built from: the preloaded pair
// when both halves are usable, otherwise a single upstream fetch.
type Resolver struct {
	store   storage.PreloadStore
	fetcher Fetcher
	topTags TopTagsSink
	tracer  trace.Tracer
}

// NewResolver creates a resolver. topTags may be nil.
func NewResolver(store storage.PreloadStore, fetcher Fetcher, topTags TopTagsSink) *Resolver {
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		topTags: topTags,
		tracer:  otel.Tracer(tracerName),
	}
}

// ResolveSource returns the payload for mode.
//
// Categories-only views drop any pending topic list entry and fetch
// categories upstream. Embedded views take both preload entries; the pair is
// used only when the categories entry carries category_list and the topics
// entry carries topic_list. Any other outcome discards what was taken and
// fetches the combined payload, so cached and fetched halves never mix.
func (r *Resolver) ResolveSource(ctx context.Context, mode domain.Mode) (domain.Payload, error) {
	ctx, span := r.tracer.Start(ctx, "categories.resolve_source", trace.WithAttributes(requestAttributes(ctx,
		attribute.String("discovery.mode", mode.String()),
	)...))
	defer span.End()

	payload, source, err := r.resolve(ctx, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Payload{}, err
	}
	span.SetAttributes(attribute.String("discovery.source", source))

	if tags, ok := payload.TopTags(); ok && r.topTags != nil {
		r.topTags.SetTopTags(tags)
	}
	return payload, nil
}

func (r *Resolver) resolve(ctx context.Context, mode domain.Mode) (domain.Payload, string, error) {
	filter, embedded := mode.Filter()
	if !embedded {
		if r.store != nil {
			if err := r.store.Remove(ctx, storage.KeyTopicList); err != nil {
				log.Printf("discovery: remove pending %s: %v", storage.KeyTopicList, err)
			}
		}
		payload, err := r.fetcher.Categories(ctx)
		if err != nil {
			return domain.Payload{}, "", fmt.Errorf("fetch categories: %w", err)
		}
		return payload, "network", nil
	}

	if payload, ok := r.takePreloaded(ctx); ok {
		return payload, "preload", nil
	}
	payload, err := r.fetcher.CategoriesAndTopics(ctx, filter)
	if err != nil {
		return domain.Payload{}, "", fmt.Errorf("fetch categories and %s topics: %w", filter, err)
	}
	return payload, "network", nil
}

type takeResult struct {
	payload domain.Payload
	ok      bool
}

// takePreloaded consumes both preload entries concurrently and reports
// whether together they form a usable payload.
func (r *Resolver) takePreloaded(ctx context.Context) (domain.Payload, bool) {
	if r.store == nil {
		return domain.Payload{}, false
	}

	var categories, topics takeResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		categories = r.take(ctx, storage.KeyCategoriesList)
	}()
	go func() {
		defer wg.Done()
		topics = r.take(ctx, storage.KeyTopicList)
	}()
	wg.Wait()

	usable := categories.ok && topics.ok &&
		categories.payload.CategoryList != nil &&
		topics.payload.TopicList != nil
	if usable {
		return categories.payload.Overlay(topics.payload), true
	}
	if categories.ok || topics.ok {
		log.Printf("discovery: preload pair unusable (categories=%t topics=%t), fetching upstream", categories.ok, topics.ok)
	}
	return domain.Payload{}, false
}

// take reads one entry. Store errors and undecodable entries are misses.
func (r *Resolver) take(ctx context.Context, key string) takeResult {
	ctx, cancel := context.WithTimeout(ctx, timeouts.PreloadTake)
	defer cancel()

	raw, found, err := r.store.Take(ctx, key)
	if err != nil {
		log.Printf("discovery: take preload %s: %v", key, err)
		return takeResult{}
	}
	if !found {
		return takeResult{}
	}
	payload, err := domain.DecodePayload(raw)
	if err != nil {
		log.Printf("discovery: decode preload %s: %v", key, err)
		return takeResult{}
	}
	return takeResult{payload: payload, ok: true}
}
