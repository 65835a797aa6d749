// Package httpapi exposes discovery lists, tracking state and the preload
// hook over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
	"github.com/louisbranch/topicfeed/internal/platform/httpx"
	"github.com/louisbranch/topicfeed/internal/platform/requestctx"
	"github.com/louisbranch/topicfeed/internal/services/discovery/categories"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
	"github.com/louisbranch/topicfeed/internal/services/discovery/session"
	"github.com/louisbranch/topicfeed/internal/services/discovery/sitestate"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
	"github.com/louisbranch/topicfeed/internal/services/discovery/title"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
)

const (
	maxRequestBytes = 1 << 20
	maxPreloadBytes = 8 << 20
)

// Deps are the collaborators the handler serves.
type Deps struct {
	Route         *categories.Route
	Sessions      *session.Store
	Codec         *session.Codec
	Site          *sitestate.Site
	Tracking      *tracking.State
	Preload       storage.PreloadStore
	SecureCookies bool
}

type handler struct {
	deps Deps
}

// NewHandler returns the discovery routes.
func NewHandler(deps Deps) (http.Handler, error) {
	switch {
	case deps.Route == nil:
		return nil, errors.New("route is required")
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	case deps.Codec == nil:
		return nil, errors.New("session codec is required")
	case deps.Site == nil:
		return nil, errors.New("site state is required")
	case deps.Tracking == nil:
		return nil, errors.New("tracking state is required")
	case deps.Preload == nil:
		return nil, errors.New("preload store is required")
	}

	h := &handler{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /categories", h.categories)
	mux.HandleFunc("POST /categories/load-before", h.loadBefore)
	mux.HandleFunc("GET /categories/restore", h.restore)
	mux.HandleFunc("GET /tracking/state", h.trackingState)
	mux.HandleFunc("POST /tracking/topics", h.publishTopic)
	mux.HandleFunc("/tracking/ws", h.trackingStream(tracking.NewStreamHandler(deps.Tracking, streamChannel)))
	mux.HandleFunc("POST /preload/{key}", h.putPreload)

	return httpx.Chain(mux, httpx.RequestID("discovery"), httpx.RecoverPanic()), nil
}

func (h *handler) categories(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.session(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	settings := h.deps.Site.Settings()
	ctx := requestctx.WithSessionID(r.Context(), viewer.ID())
	list, mode, err := h.deps.Route.Model(ctx, categories.ModelRequest{
		IsMobile: parseBool(query.Get("mobile_view")),
		Style:    settings.Style(),
		Merge: domain.MergeContext{
			SessionID: viewer.ID(),
			Params:    listParams(query),
		},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	viewer.SetActive(list)

	printer := title.Printer(query.Get("lang"), r.Header.Get("Accept-Language"), settings.DefaultLocale)
	resp := newListResponse(list)
	resp.Title = title.CategoriesTitle(printer, settings.Homepage)
	resp.Mode = mode.String()
	if tags, ok := h.deps.Site.TopTags(); ok {
		resp.TopTags = tags
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}

type loadBeforeRequest struct {
	TopicIDs       []int64 `json:"topic_ids"`
	StoreInSession bool    `json:"store_in_session"`
}

func (h *handler) loadBefore(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.session(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req loadBeforeRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	list := viewer.Active()
	if list == nil {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no active category list"))
		return
	}

	topicIDs := req.TopicIDs
	fromIncoming := len(topicIDs) == 0
	if fromIncoming {
		topicIDs = h.deps.Tracking.IncomingTopicIDs(categories.SessionChannel(viewer.ID()))
	}
	if len(topicIDs) == 0 {
		h.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "topic_ids is required"))
		return
	}

	ctx := requestctx.WithSessionID(r.Context(), viewer.ID())
	if err := list.LoadBefore(ctx, topicIDs, req.StoreInSession); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.Route.Refresh(list)
	if fromIncoming {
		h.deps.Tracking.ResetIncoming(categories.SessionChannel(viewer.ID()))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newListResponse(list))
}

func (h *handler) restore(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.session(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, ok := viewer.Get(session.SlotTopicList)
	if !ok {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no stored topic list"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newListResponse(list))
}

type trackingStateResponse struct {
	Channel    string                    `json:"channel"`
	Tracking   bool                      `json:"tracking"`
	Categories []tracking.CategoryCounts `json:"categories"`
	Incoming   []int64                   `json:"incoming_topic_ids"`
}

func (h *handler) trackingState(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.session(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	channel := categories.SessionChannel(viewer.ID())
	_ = httpx.WriteJSON(w, http.StatusOK, trackingStateResponse{
		Channel:    channel,
		Tracking:   h.deps.Tracking.IsTracking(channel),
		Categories: h.deps.Tracking.Counts(),
		Incoming:   h.deps.Tracking.IncomingTopicIDs(channel),
	})
}

// trackingStream limits the websocket stream to the caller's own channel.
// The handshake cannot carry a new session cookie, so the caller must
// already hold a live session.
func (h *handler) trackingStream(stream http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := h.deps.Codec.FromRequest(r)
		if err != nil {
			h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no active session"))
			return
		}
		viewer, ok := h.deps.Sessions.Get(sessionID)
		if !ok {
			h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no active session"))
			return
		}
		stream.ServeHTTP(w, r.WithContext(requestctx.WithSessionID(r.Context(), viewer.ID())))
	}
}

func streamChannel(r *http.Request) string {
	return categories.SessionChannel(requestctx.SessionIDFromContext(r.Context()))
}

func (h *handler) publishTopic(w http.ResponseWriter, r *http.Request) {
	var topic tracking.NewTopic
	if err := decodeBody(r, &topic); err != nil {
		h.writeError(w, r, err)
		return
	}
	if topic.TopicID <= 0 {
		h.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "topic_id must be positive"))
		return
	}
	accepted := h.deps.Tracking.Publish(topic)
	_ = httpx.WriteJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (h *handler) putPreload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key != storage.KeyCategoriesList && key != storage.KeyTopicList {
		h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown preload key", map[string]string{"key": key}))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPreloadBytes))
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "read preload body", err))
		return
	}
	if _, err := domain.DecodePayload(body); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "preload body", err))
		return
	}
	if err := h.deps.Preload.Put(r.Context(), key, body); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeStoreUnavailable, "store preload entry", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resumes the caller's session from its cookie, starting a new one
// and setting the cookie when none is valid.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	sessionID, err := h.deps.Codec.FromRequest(r)
	if err != nil {
		sessionID = ""
	}
	viewer, created, err := h.deps.Sessions.Resume(sessionID)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	if created {
		token, err := h.deps.Codec.Issue(viewer.ID())
		if err != nil {
			return nil, fmt.Errorf("issue session cookie: %w", err)
		}
		http.SetCookie(w, h.deps.Codec.Cookie(token, h.deps.SecureCookies))
		if sessionID != "" {
			log.Printf("discovery: session %s expired, started %s", sessionID, viewer.ID())
		}
	}
	return viewer, nil
}

// writeError reports err with a message localized like the page title.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	locale := title.Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), h.deps.Site.Settings().DefaultLocale)
	httpx.WriteLocalizedError(w, err, locale.String())
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "decode request body", err)
	}
	return nil
}

// listParams keeps the query parameters that shape the list itself.
func listParams(query url.Values) url.Values {
	params := make(url.Values, len(query))
	for key, values := range query {
		switch key {
		case "mobile_view", "lang":
			continue
		}
		params[key] = append([]string(nil), values...)
	}
	return params
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
