package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/forum/", server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	tests := []string{"", "   ", "ftp://forum.example", "://bad"}
	for _, raw := range tests {
		if _, err := NewClient(raw, nil); err == nil {
			t.Fatalf("NewClient(%q) expected error", raw)
		}
	}
}

func TestCategoriesAndTopicsRequestsFilterPath(t *testing.T) {
	t.Parallel()

	var gotPath, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"category_list":{"categories":[]},"topic_list":{"topics":[{"id":3}]}}`))
	})

	payload, err := client.CategoriesAndTopics(context.Background(), "top")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/forum/categories_and_top" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAccept != "application/json" {
		t.Fatalf("accept = %q", gotAccept)
	}
	if payload.CategoryList == nil || payload.TopicList == nil || payload.TopicList.Topics[0].ID != 3 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestCategoriesRequestsCategoriesJSON(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"category_list":{"can_create_topic":true,"categories":[]}}`))
	})

	payload, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/forum/categories.json" || payload.CategoryList == nil || !payload.CategoryList.CanCreateTopic {
		t.Fatalf("path = %q payload = %+v", gotPath, payload)
	}
}

func TestLatestByIDsCarriesParams(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotRaw string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotRaw = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"topic_list":{"topics":[]}}`))
	})

	params := url.Values{"order": {"created"}, "topic_ids": {"99"}}
	if _, err := client.LatestByIDs(context.Background(), []int64{5, 6}, params); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotQuery.Get("topic_ids") != "5,6" {
		t.Fatalf("topic_ids = %q (raw %q)", gotQuery.Get("topic_ids"), gotRaw)
	}
	if len(gotQuery["topic_ids"]) != 1 {
		t.Fatalf("expected params topic_ids to be replaced, raw %q", gotRaw)
	}
	if gotQuery.Get("order") != "created" {
		t.Fatalf("order = %q", gotQuery.Get("order"))
	}
}

func TestNonSuccessStatusIsNetworkFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := client.Categories(context.Background())
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if apperrors.CodeOf(err) != apperrors.CodeNetworkFailure {
		t.Fatalf("code = %v", apperrors.CodeOf(err))
	}
}

func TestTransportErrorIsNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(base, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Categories(context.Background()); !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestInvalidJSONIsMalformedPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	if _, err := client.CategoriesAndTopics(context.Background(), "latest"); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestBlankFilterRejected(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	if _, err := client.CategoriesAndTopics(context.Background(), " "); err == nil {
		t.Fatal("expected error")
	}
}
