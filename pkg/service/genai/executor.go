package genai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/carelens/carelens/pkg/utils/async"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Request is one schema-constrained generation
type Request struct {
	// Label names the stage in logs and archived responses, e.g. "summary"
	Label        string
	SystemPrompt string
	Prompt       string
	Schema       *gollem.Parameter
}

// Executor issues a single model call and returns JSON that satisfies the request schema
type Executor interface {
	Execute(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client implements Executor over a gollem LLM client
type Client struct {
	llm     gollem.LLMClient
	archive archive.Service
	now     func() time.Time
}

var _ Executor = &Client{}

// Option is a functional option for Client
type Option func(*Client)

// WithArchive stores raw responses that fail to parse
func WithArchive(svc archive.Service) Option {
	return func(c *Client) {
		c.archive = svc
	}
}

// New creates a Client. The LLM client is required.
func New(llm gollem.LLMClient, opts ...Option) (*Client, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &Client{
		llm:     llm,
		archive: archive.Noop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Schema == nil {
		return nil, goerr.Wrap(ErrNoSchema, "cannot execute generation", goerr.V("label", req.Label))
	}

	raw, err := c.execute(ctx, req)
	if err != nil {
		logging.From(ctx).Warn("generation failed",
			"label", req.Label,
			"error_kind", Kind(err),
			"error", err,
		)
		return nil, err
	}
	return raw, nil
}

func (c *Client) execute(ctx context.Context, req Request) (json.RawMessage, error) {
	opts := []gollem.SessionOption{
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(req.Schema),
	}
	if req.SystemPrompt != "" {
		opts = append(opts, gollem.WithSessionSystemPrompt(req.SystemPrompt))
	}

	session, err := c.llm.NewSession(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session",
			goerr.V("label", req.Label),
			goerr.T(ErrTagTransport))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(req.Prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content",
			goerr.V("label", req.Label),
			goerr.T(ErrTagTransport))
	}

	var text string
	if resp != nil {
		text = strings.TrimSpace(strings.Join(resp.Texts, ""))
	}
	if text == "" {
		return nil, goerr.Wrap(ErrEmptyResponse, "no text in model response",
			goerr.V("label", req.Label),
			goerr.T(ErrTagTransport))
	}
	text = StripCodeFence(text)

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		c.keep(ctx, req.Label, "invalid_json", text)
		return nil, goerr.Wrap(err, "model response is not valid JSON",
			goerr.V("label", req.Label),
			goerr.T(ErrTagParse))
	}

	if err := req.Schema.ValidateValue("$", decoded); err != nil {
		c.keep(ctx, req.Label, "schema_violation", text)
		return nil, goerr.Wrap(err, "model response does not match schema",
			goerr.V("label", req.Label),
			goerr.T(ErrTagParse))
	}

	return json.RawMessage(text), nil
}

// keep archives the raw response without blocking the caller
func (c *Client) keep(ctx context.Context, label, reason, text string) {
	entry := archive.Entry{
		Label:     label,
		Reason:    reason,
		Response:  text,
		CreatedAt: c.now(),
	}
	async.Dispatch(ctx, "archive_response", func(ctx context.Context) error {
		return c.archive.Put(ctx, entry)
	})
}

// StripCodeFence removes a surrounding Markdown code fence, which some models add even in JSON mode
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
