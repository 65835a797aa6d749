package domain

import (
	"errors"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
)

var (
	// ErrMalformedPayload indicates a fetched payload lacks required structure.
	// Any error carrying CodeMalformedPayload matches it under errors.Is.
	ErrMalformedPayload = apperrors.New(apperrors.CodeMalformedPayload, "malformed payload")
	// ErrNetworkFailure indicates an upstream fetch was rejected.
	// Any error carrying CodeNetworkFailure matches it under errors.Is.
	ErrNetworkFailure = apperrors.New(apperrors.CodeNetworkFailure, "network failure")
	// ErrListDiscarded indicates the list's view was torn down.
	ErrListDiscarded = apperrors.New(apperrors.CodeListDiscarded, "category list discarded")
	// ErrLoaderNotConfigured indicates a list was built without a merge engine.
	ErrLoaderNotConfigured = errors.New("category list has no load-before operation")
)
