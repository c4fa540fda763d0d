package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ibeckermayer/autobip/internal/store"
	"github.com/ibeckermayer/autobip/internal/types"
)

type fakeModels struct {
	calls  int
	model  string
	prompt string
	config *genai.GenerateContentConfig
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

type memJournal struct {
	exchanges []store.LLMExchange
}

func (m *memJournal) SaveExchange(ctx context.Context, e store.LLMExchange) error {
	m.exchanges = append(m.exchanges, e)
	return nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

var testConfig = GeminiConfig{
	TextModel:    "gemini-2.5-flash",
	RewriteModel: "gemini-3-pro-preview",
	ImageModel:   "gemini-3-pro-image-preview",
}

func TestMissingAPIKeyNeverCallsBackend(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), GeminiConfig{})
	require.NoError(t, err)
	assert.False(t, p.Configured())

	_, err = p.GenerateStructured(context.Background(), "anything", DraftSchema)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = p.GenerateWithTools(context.Background(), "anything", ToolSearch)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = p.GenerateImage(context.Background(), "anything", types.ImageSize2K)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateStructuredSetsSchema(t *testing.T) {
	fake := &fakeModels{resp: textResponse(`{"title":"T","content":"C"}`)}
	p := NewGeminiProviderWithModels(fake, testConfig)

	text, err := p.GenerateStructured(context.Background(), "write it", DraftSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"T","content":"C"}`, text)
	assert.Equal(t, "gemini-2.5-flash", fake.model)
	assert.Equal(t, "write it", fake.prompt)
	require.NotNil(t, fake.config)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Same(t, DraftSchema, fake.config.ResponseSchema)
	assert.Empty(t, fake.config.Tools)
}

func TestGenerateStructuredEmptyText(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{}}
	p := NewGeminiProviderWithModels(fake, testConfig)

	_, err := p.GenerateStructured(context.Background(), "write it", DraftSchema)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTransportErrorWrapsCause(t *testing.T) {
	cause := errors.New("503 unavailable")
	fake := &fakeModels{err: cause}
	journal := &memJournal{}
	p := NewGeminiProviderWithModels(fake, testConfig).WithJournal(journal)

	_, err := p.GenerateStructured(context.Background(), "write it", DraftSchema)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ModeStructured, te.Mode)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, fake.calls, "no retries")

	require.Len(t, journal.exchanges, 1)
	assert.Equal(t, "503 unavailable", journal.exchanges[0].Error)
	assert.Equal(t, "structured", journal.exchanges[0].Mode)
}

func TestGenerateWithToolsCollectsGrounding(t *testing.T) {
	resp := textResponse("```json\n{\"title\":\"x\"}\n```")
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{},
			{Web: &genai.GroundingChunkWeb{URI: "https://example.com/a", Title: "a"}},
			{Web: &genai.GroundingChunkWeb{URI: "https://example.com/b"}},
		},
	}
	fake := &fakeModels{resp: resp}
	journal := &memJournal{}
	p := NewGeminiProviderWithModels(fake, testConfig).WithJournal(journal)

	out, err := p.GenerateWithTools(context.Background(), "search", ToolSearch)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, out.URLs)
	assert.Contains(t, out.Text, `"title":"x"`)

	require.Len(t, fake.config.Tools, 1)
	assert.NotNil(t, fake.config.Tools[0].GoogleSearch)
	assert.Empty(t, fake.config.ResponseMIMEType, "schema mode cannot be combined with tools")

	require.Len(t, journal.exchanges, 1)
	assert.Equal(t, out.Text, journal.exchanges[0].Response)
}

func TestGenerateWithToolsRejectsUnknownTool(t *testing.T) {
	p := NewGeminiProviderWithModels(&fakeModels{}, testConfig)
	_, err := p.GenerateWithTools(context.Background(), "search", Tool("code_exec"))
	assert.Error(t, err)
}

func TestRewriteUsesRewriteModel(t *testing.T) {
	fake := &fakeModels{resp: textResponse("sharper text")}
	p := NewGeminiProviderWithModels(fake, testConfig)

	out, err := p.Rewrite(context.Background(), "rewrite this")
	require.NoError(t, err)
	assert.Equal(t, "sharper text", out)
	assert.Equal(t, "gemini-3-pro-preview", fake.model)
}

func TestGenerateImageReturnsFirstInlinePart(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("img")}},
			}},
		}},
	}}
	p := NewGeminiProviderWithModels(fake, testConfig)

	img, err := p.GenerateImage(context.Background(), "a picture", types.ImageSize4K)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", img.DataURI())
	assert.Equal(t, "gemini-3-pro-image-preview", fake.model)
	require.NotNil(t, fake.config.ImageConfig)
	assert.Equal(t, "16:9", fake.config.ImageConfig.AspectRatio)
	assert.Equal(t, "4K", fake.config.ImageConfig.ImageSize)
}

func TestGenerateImageWithoutImagePart(t *testing.T) {
	fake := &fakeModels{resp: textResponse("sorry, no image")}
	p := NewGeminiProviderWithModels(fake, testConfig)

	_, err := p.GenerateImage(context.Background(), "a picture", "8K")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, "1K", fake.config.ImageConfig.ImageSize, "unknown sizes fall back to 1K")
}

func TestImageDataURIDefaultsToPNG(t *testing.T) {
	img := &Image{Data: []byte("img")}
	assert.Equal(t, "data:image/png;base64,aW1n", img.DataURI())
}
