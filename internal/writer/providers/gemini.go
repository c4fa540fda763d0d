package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ibeckermayer/autobip/internal/logging"
	"github.com/ibeckermayer/autobip/internal/store"
	"github.com/ibeckermayer/autobip/internal/types"
)

const (
	provider     = "gemini"
	aspectRatio  = "16:9"
	fallbackMIME = "image/png"
)

// Mode names the way a prompt is sent to the backend.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeTools      Mode = "tools"
	ModeRewrite    Mode = "rewrite"
	ModeImage      Mode = "image"
)

// Tool is a capability the backend may use while answering.
type Tool string

const ToolSearch Tool = "google_search"

// Schema is the response schema for structured calls.
type Schema = genai.Schema

// DraftSchema constrains a structured response to {title, content}.
var DraftSchema = &Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":   {Type: genai.TypeString},
		"content": {Type: genai.TypeString},
	},
	Required: []string{"title", "content"},
}

// Grounded is free text returned by a tool-augmented call together with
// the web sources the backend cited.
type Grounded struct {
	Text string
	URLs []string
}

// Image is inline image data returned by the image model.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI renders the image as a displayable data: URI.
func (i *Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = fallbackMIME
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(i.Data))
}

// Journal records prompt/response exchanges for debugging.
type Journal interface {
	SaveExchange(ctx context.Context, exchange store.LLMExchange) error
}

// Models is the slice of the genai client used here. *genai.Models
// satisfies it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig selects credentials and models.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	TextModel    string
	RewriteModel string
	ImageModel   string
	Timeout      time.Duration // per call, 0 leaves it to the transport
}

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	models  Models
	cfg     GeminiConfig
	journal Journal
	log     *slog.Logger
}

// NewGeminiProvider creates a provider. With an empty API key no client is
// built and every call returns ErrMissingAPIKey.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	p := &GeminiProvider{cfg: cfg, log: logging.Component(provider)}
	if strings.TrimSpace(cfg.APIKey) == "" {
		p.log.Warn("no API key configured, generation will return placeholders")
		return p, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	p.models = client.Models
	return p, nil
}

// NewGeminiProviderWithModels builds a provider around an existing Models
// implementation.
func NewGeminiProviderWithModels(models Models, cfg GeminiConfig) *GeminiProvider {
	return &GeminiProvider{models: models, cfg: cfg, log: logging.Component(provider)}
}

// WithJournal attaches a journal that receives every exchange.
func (g *GeminiProvider) WithJournal(j Journal) *GeminiProvider {
	g.journal = j
	return g
}

// Configured reports whether a credential is present.
func (g *GeminiProvider) Configured() bool {
	return g.models != nil
}

// GenerateStructured runs a schema-constrained JSON completion and returns
// the raw JSON text.
func (g *GeminiProvider) GenerateStructured(ctx context.Context, prompt string, schema *Schema) (string, error) {
	resp, err := g.call(ctx, ModeStructured, g.cfg.TextModel, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", &TransportError{Mode: ModeStructured, Model: g.cfg.TextModel, Err: ErrEmptyResponse}
	}
	return text, nil
}

// GenerateWithTools runs a tool-augmented completion. Structured output
// cannot be combined with tools, so the text is unconstrained.
func (g *GeminiProvider) GenerateWithTools(ctx context.Context, prompt string, tools ...Tool) (*Grounded, error) {
	cfg := &genai.GenerateContentConfig{}
	for _, t := range tools {
		switch t {
		case ToolSearch:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		default:
			return nil, fmt.Errorf("unknown tool %q", t)
		}
	}

	resp, err := g.call(ctx, ModeTools, g.cfg.TextModel, prompt, cfg)
	if err != nil {
		return nil, err
	}
	return &Grounded{Text: resp.Text(), URLs: groundingURLs(resp)}, nil
}

// Rewrite runs a plain completion on the rewrite model.
func (g *GeminiProvider) Rewrite(ctx context.Context, prompt string) (string, error) {
	resp, err := g.call(ctx, ModeRewrite, g.cfg.RewriteModel, prompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateImage asks the image model for a 16:9 picture of the given size
// class and returns the first inline image part.
func (g *GeminiProvider) GenerateImage(ctx context.Context, prompt string, size types.ImageSize) (*Image, error) {
	if !size.Valid() {
		size = types.ImageSize1K
	}
	resp, err := g.call(ctx, ModeImage, g.cfg.ImageModel, prompt, &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspectRatio,
			ImageSize:   string(size),
		},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Image{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}, nil
			}
		}
	}
	return nil, &TransportError{Mode: ModeImage, Model: g.cfg.ImageModel, Err: ErrEmptyResponse}
}

// call performs exactly one request; there are no retries.
func (g *GeminiProvider) call(ctx context.Context, mode Mode, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if g.models == nil {
		return nil, ErrMissingAPIKey
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err == nil && resp == nil {
		err = ErrEmptyResponse
	}

	exchange := store.LLMExchange{
		Timestamp: start,
		Provider:  provider,
		Model:     model,
		Mode:      string(mode),
		Prompt:    prompt,
		Duration:  time.Since(start),
	}
	if err != nil {
		exchange.Error = err.Error()
	} else if mode != ModeImage {
		exchange.Response = resp.Text()
	}
	g.record(ctx, exchange)

	if err != nil {
		return nil, &TransportError{Mode: mode, Model: model, Err: err}
	}
	g.log.Debug("generation complete", "mode", mode, "model", model, "elapsed", time.Since(start))
	return resp, nil
}

func (g *GeminiProvider) record(ctx context.Context, exchange store.LLMExchange) {
	if g.journal == nil {
		return
	}
	// the request context may already be done; the journal write should not be
	if err := g.journal.SaveExchange(context.WithoutCancel(ctx), exchange); err != nil {
		g.log.Warn("failed to journal LLM exchange", "error", err)
	}
}

// groundingURLs collects web URIs from the first candidate's grounding
// metadata, in order.
func groundingURLs(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var urls []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
			urls = append(urls, chunk.Web.URI)
		}
	}
	return urls
}
