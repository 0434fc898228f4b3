package genai_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/carelens/carelens/pkg/service/genai"
	"github.com/carelens/carelens/pkg/service/schema"
	"github.com/carelens/carelens/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
)

type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.newSessionFn(ctx, options...)
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respondWith(texts ...string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
					return &gollem.Response{Texts: texts}, nil
				},
			}, nil
		},
	}
}

func summaryRequest() genai.Request {
	return genai.Request{
		Label:  "summary",
		Prompt: "persistent headache for 3 days, mild fever",
		Schema: schema.NewRegistry().Summary(),
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("returns validated JSON", func(t *testing.T) {
		var gotPrompt string
		var gotOptions int
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				gotOptions = len(options)
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						gotPrompt = string(input[0].(gollem.Text))
						return &gollem.Response{Texts: []string{`{"title":"Headache with fever",`, `"summary":"Three-day headache with mild fever."}`}}, nil
					},
				}, nil
			},
		}

		client, err := genai.New(llm)
		gt.NoError(t, err).Required()

		req := summaryRequest()
		req.SystemPrompt = "You are a clinical assistant."
		raw, err := client.Execute(ctx, req)
		gt.NoError(t, err).Required()
		gt.Value(t, gotPrompt).Equal("persistent headache for 3 days, mild fever")
		gt.Value(t, gotOptions).Equal(3)

		var out struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
		}
		gt.NoError(t, genai.Decode(raw, &out)).Required()
		gt.Value(t, out.Title).Equal("Headache with fever")
	})

	t.Run("strips code fence", func(t *testing.T) {
		client, err := genai.New(respondWith("```json\n{\"title\":\"t\",\"summary\":\"s\"}\n```"))
		gt.NoError(t, err).Required()

		raw, err := client.Execute(ctx, summaryRequest())
		gt.NoError(t, err).Required()
		gt.Value(t, string(raw)).Equal(`{"title":"t","summary":"s"}`)
	})

	t.Run("session failure is a transport failure", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, errors.New("connection refused")
			},
		}
		client, err := genai.New(llm)
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Error(t, err)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindTransport)
	})

	t.Run("generate failure is a transport failure", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						return nil, errors.New("503 unavailable")
					},
				}, nil
			},
		}
		client, err := genai.New(llm)
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Bool(t, goerr.HasTag(err, genai.ErrTagTransport)).True()
		gt.Bool(t, goerr.HasTag(err, genai.ErrTagParse)).False()
	})

	t.Run("empty response is a transport failure", func(t *testing.T) {
		client, err := genai.New(respondWith())
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Error(t, err).Is(genai.ErrEmptyResponse)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindTransport)
	})

	t.Run("invalid JSON is a parse failure and is archived", func(t *testing.T) {
		store := &archive.Memory{}
		client, err := genai.New(respondWith(`{"title": "t", `), genai.WithArchive(store))
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Value(t, genai.Kind(err)).Equal(genai.KindParse)

		async.Wait()
		entries := store.Entries()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Label).Equal("summary")
		gt.Value(t, entries[0].Reason).Equal("invalid_json")
	})

	t.Run("missing required field is a parse failure", func(t *testing.T) {
		client, err := genai.New(respondWith(`{"title":"t"}`))
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Error(t, err).Is(gollem.ErrInvalidParameter)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindParse)
	})

	t.Run("wrong field type is a parse failure and is archived", func(t *testing.T) {
		store := &archive.Memory{}
		client, err := genai.New(respondWith(`{"title":"t","summary":3}`), genai.WithArchive(store))
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, summaryRequest())
		gt.Error(t, err).Is(gollem.ErrInvalidParameter)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindParse)

		async.Wait()
		entries := store.Entries()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Reason).Equal("schema_violation")
	})

	t.Run("request without schema is rejected", func(t *testing.T) {
		client, err := genai.New(respondWith(`{}`))
		gt.NoError(t, err).Required()

		_, err = client.Execute(ctx, genai.Request{Label: "x", Prompt: "p"})
		gt.Error(t, err).Is(genai.ErrNoSchema)
	})

	t.Run("nil client is rejected", func(t *testing.T) {
		_, err := genai.New(nil)
		gt.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	t.Run("validates targets", func(t *testing.T) {
		var analysis model.SymptomAnalysis
		err := genai.Decode([]byte(`{"potentialConditions":[],"finalVerdict":"x"}`), &analysis)
		gt.Error(t, err).Is(model.ErrInvalidPayload)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindParse)
	})

	t.Run("decodes into several targets", func(t *testing.T) {
		raw := []byte(`{"clinicalActions":["rest"],"disclaimer":"d","genericName":"ibuprofen","dosingGuidance":[{"population":"adults","dose":"200mg"}],"contraindications":["ulcer"]}`)
		var common model.MedicineCommon
		var name model.NameAnalysis
		gt.NoError(t, genai.Decode(raw, &common, &name)).Required()
		gt.Value(t, common.ClinicalActions).Equal([]string{"rest"})
		gt.Value(t, name.GenericName).Equal("ibuprofen")
	})

	t.Run("type mismatch", func(t *testing.T) {
		var common model.MedicineCommon
		err := genai.Decode([]byte(`{"clinicalActions":"rest"}`), &common)
		gt.Value(t, genai.Kind(err)).Equal(genai.KindParse)
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: `{"a":1}`, want: `{"a":1}`},
		{input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{input: "```\n{\"a\":1}```", want: `{"a":1}`},
		{input: "  ```json\n{\"a\":1}\n```  ", want: `{"a":1}`},
		{input: "```", want: ""},
	}

	for _, tt := range tests {
		gt.Value(t, genai.StripCodeFence(tt.input)).Equal(tt.want)
	}
}

func TestExecute_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llm, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	client, err := genai.New(llm)
	gt.NoError(t, err).Required()

	raw, err := client.Execute(ctx, genai.Request{
		Label:  "summary",
		Prompt: "Summarize this request for a clinician: persistent headache for 3 days, mild fever",
		Schema: schema.NewRegistry().Summary(),
	})
	gt.NoError(t, err).Required()

	var out struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	gt.NoError(t, genai.Decode(raw, &out)).Required()
	gt.String(t, out.Title).NotEqual("")
	gt.String(t, out.Summary).NotEqual("")
}
