package categories

import (
	"context"
	"fmt"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
)

// Deps are the collaborators a Route is built from.
type Deps struct {
	Store     storage.PreloadStore
	Fetcher   Fetcher
	TopTags   TopTagsSink
	Tracker   Tracker
	Snapshots SnapshotStore
}

// Route produces the list for one categories view.
type Route struct {
	resolver  *Resolver
	assembler *Assembler
	bridge    *Bridge
}

// NewRoute wires the resolver, assembler, bridge and merger over deps.
func NewRoute(deps Deps) (*Route, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	merger := NewMerger(deps.Fetcher, deps.Snapshots)
	return &Route{
		resolver:  NewResolver(deps.Store, deps.Fetcher, deps.TopTags),
		assembler: NewAssembler(merger),
		bridge:    NewBridge(deps.Tracker),
	}, nil
}

// ModelRequest describes one view request.
type ModelRequest struct {
	IsMobile bool
	Style    domain.Style
	Merge    domain.MergeContext
}

// Model resolves the mode, builds the list and registers it with tracking
// under the SessionChannel of req.Merge.SessionID.
func (r *Route) Model(ctx context.Context, req ModelRequest) (*domain.CategoryList, domain.Mode, error) {
	mode := domain.ResolveMode(req.IsMobile, req.Style)
	payload, err := r.resolver.ResolveSource(ctx, mode)
	if err != nil {
		return nil, mode, err
	}
	list, err := r.assembler.Assemble(payload, req.Merge)
	if err != nil {
		return nil, mode, err
	}
	r.bridge.Attach(list, SessionChannel(req.Merge.SessionID))
	return list, mode, nil
}

// Refresh re-registers list with tracking after a merge changed its topics.
func (r *Route) Refresh(list *domain.CategoryList) {
	if list == nil {
		return
	}
	r.bridge.Attach(list, SessionChannel(list.MergeContext().SessionID))
}
