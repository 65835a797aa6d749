// Package upstream fetches discovery payloads from the forum JSON API.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
	"github.com/louisbranch/topicfeed/internal/platform/timeouts"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

const (
	tracerName = "github.com/louisbranch/topicfeed/internal/services/discovery/upstream"

	// maxBodyBytes bounds one upstream response body.
	maxBodyBytes = 8 << 20
)

// Client calls the upstream forum endpoints used by discovery lists.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	tracer  trace.Tracer
}

// NewClient creates a client rooted at baseURL. A nil httpClient uses one
// bounded by timeouts.UpstreamRequest.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url must be http or https: %q", trimmed)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.UpstreamRequest}
	}
	return &Client{
		baseURL: parsed,
		client:  httpClient,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// CategoriesAndTopics fetches the combined categories and topic list payload
// for filter ("latest" or "top").
func (c *Client) CategoriesAndTopics(ctx context.Context, filter string) (domain.Payload, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return domain.Payload{}, apperrors.New(apperrors.CodeInvalidArgument, "topic filter is required")
	}
	return c.get(ctx, "categories_and_topics", "/categories_and_"+filter, "", attribute.String("discovery.filter", filter))
}

// Categories fetches the categories-only payload.
func (c *Client) Categories(ctx context.Context) (domain.Payload, error) {
	return c.get(ctx, "categories", "/categories.json", "")
}

// LatestByIDs fetches the given topics from the latest list, carrying params
// along with the topic_ids filter.
func (c *Client) LatestByIDs(ctx context.Context, topicIDs []int64, params url.Values) (domain.Payload, error) {
	ids := make([]string, 0, len(topicIDs))
	for _, id := range topicIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	query := "topic_ids=" + strings.Join(ids, ",")
	if len(params) > 0 {
		extra := make(url.Values, len(params))
		for key, values := range params {
			if key == "topic_ids" {
				continue
			}
			extra[key] = values
		}
		if encoded := extra.Encode(); encoded != "" {
			query += "&" + encoded
		}
	}
	return c.get(ctx, "latest_by_ids", "/latest.json", query, attribute.Int("discovery.topic_ids", len(topicIDs)))
}

func (c *Client) get(ctx context.Context, op, path, rawQuery string, attrs ...attribute.KeyValue) (domain.Payload, error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+op, trace.WithAttributes(attrs...))
	defer span.End()

	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	target.RawQuery = rawQuery

	payload, err := c.do(ctx, target.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Payload{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, target string) (domain.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Payload{}, apperrors.Wrap(apperrors.CodeNetworkFailure, "upstream request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Payload{}, apperrors.Wrap(apperrors.CodeNetworkFailure, "read upstream response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Payload{}, apperrors.WithMetadata(
			apperrors.CodeNetworkFailure,
			fmt.Sprintf("upstream returned %s", resp.Status),
			map[string]string{"status": strconv.Itoa(resp.StatusCode), "url": target},
		)
	}
	return domain.DecodePayload(body)
}
