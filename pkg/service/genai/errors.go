package genai

import (
	"github.com/carelens/carelens/pkg/service/schema"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrTagTransport marks failures reaching the model: session setup, generation, empty output
	ErrTagTransport = goerr.NewTag("transport_failure")

	// ErrTagParse marks output that is not JSON or does not satisfy the schema.
	// A parse failure that persists across retries usually points at the prompt.
	ErrTagParse = goerr.NewTag("parse_failure")

	ErrEmptyResponse = goerr.New("model returned an empty response")
	ErrNoSchema      = goerr.New("request has no response schema")
)

// Error kinds reported in the error_kind log attribute
const (
	KindTransport   = "transport"
	KindParse       = "parse"
	KindUnsupported = "unsupported"
	KindUnknown     = "unknown"
)

// Kind classifies err for logging
func Kind(err error) string {
	switch {
	case goerr.HasTag(err, schema.ErrTagUnsupported):
		return KindUnsupported
	case goerr.HasTag(err, ErrTagParse):
		return KindParse
	case goerr.HasTag(err, ErrTagTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}
