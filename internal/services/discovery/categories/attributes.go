package categories

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/louisbranch/topicfeed/internal/platform/requestctx"
)

// requestAttributes tags spans with the request and session that caused them.
func requestAttributes(ctx context.Context, attrs ...attribute.KeyValue) []attribute.KeyValue {
	if id := requestctx.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("http.request_id", id))
	}
	if id := requestctx.SessionIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("discovery.session_id", id))
	}
	return attrs
}
