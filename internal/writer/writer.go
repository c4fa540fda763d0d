package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ibeckermayer/autobip/internal/config"
	"github.com/ibeckermayer/autobip/internal/logging"
	"github.com/ibeckermayer/autobip/internal/types"
	"github.com/ibeckermayer/autobip/internal/writer/providers"
)

// Provider defines the generation backend
type Provider interface {
	GenerateStructured(ctx context.Context, prompt string, schema *providers.Schema) (string, error)
	GenerateWithTools(ctx context.Context, prompt string, tools ...providers.Tool) (*providers.Grounded, error)
	Rewrite(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string, size types.ImageSize) (*providers.Image, error)
}

var (
	missingKeyDraft  = Generated{Title: "API Key Missing", Content: "Please configure your Gemini API key to generate content."}
	missingKeySearch = SearchDraft{Title: "No API Key", Content: "Please set API Key"}
	failedSearch     = SearchDraft{Title: "Search Failed", Content: "Could not fetch trends."}
)

// Writer turns prompts into drafts, notifications and images. Every method
// degrades to a placeholder of the success shape instead of returning an
// error; failures are logged.
type Writer struct {
	provider Provider
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Writer backed by Gemini. journal may be nil.
func New(ctx context.Context, cfg config.AnalysisConfig, journal providers.Journal) (*Writer, error) {
	gemini, err := providers.NewGeminiProvider(ctx, providers.GeminiConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		TextModel:    cfg.TextModel,
		RewriteModel: cfg.RewriteModel,
		ImageModel:   cfg.ImageModel,
		Timeout:      cfg.RequestTimeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini provider: %w", err)
	}
	if journal != nil {
		gemini = gemini.WithJournal(journal)
	}
	return NewWithProvider(gemini), nil
}

// NewWithProvider wraps an existing provider.
func NewWithProvider(p Provider) *Writer {
	return &Writer{
		provider: p,
		log:      logging.Component("writer"),
		now:      time.Now,
	}
}

// GenerateDraft writes a post from activity descriptions.
func (w *Writer) GenerateDraft(ctx context.Context, activities []string, tone types.Tone, strategy types.ContentStrategy) Generated {
	prompt := BuildDraftPrompt(activities, tone, strategy)

	raw, err := w.provider.GenerateStructured(ctx, prompt, providers.DraftSchema)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAPIKey) {
			w.log.Warn("draft generation skipped", "error", err)
			return missingKeyDraft
		}
		w.log.Error("draft generation failed", "error", err)
		return failedDraft(cause(err))
	}

	g, err := DecodeDraft(raw)
	if err != nil {
		w.log.Error("draft response was not valid JSON", "error", err)
		return failedDraft(err)
	}
	return g
}

// DetectTrends asks for trending topics and content gaps in an industry.
// It returns an empty slice on any failure.
func (w *Writer) DetectTrends(ctx context.Context, industry string) []types.Notification {
	out, err := w.provider.GenerateWithTools(ctx, BuildTrendPrompt(industry), providers.ToolSearch)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAPIKey) {
			w.log.Debug("trend detection skipped", "error", err)
		} else {
			w.log.Error("trend detection failed", "error", err)
		}
		return []types.Notification{}
	}

	text := out.Text
	if text == "" {
		text = "[]"
	}
	notifications, err := DecodeTrendList(text, w.now())
	if err != nil {
		w.log.Warn("trend response was not a JSON array", "error", err)
		return []types.Notification{}
	}
	w.log.Info("trends detected", "industry", industry, "count", len(notifications))
	return notifications
}

// Research writes a search-grounded post about topic.
func (w *Writer) Research(ctx context.Context, topic string) SearchDraft {
	out, err := w.provider.GenerateWithTools(ctx, BuildSearchPrompt(topic), providers.ToolSearch)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAPIKey) {
			w.log.Warn("research skipped", "error", err)
			return missingKeySearch
		}
		w.log.Error("research failed", "topic", topic, "error", err)
		return failedSearch
	}

	text := out.Text
	if text == "" {
		text = "{}"
	}
	d, err := DecodeSearchDraft(text, out.URLs)
	if err != nil {
		w.log.Warn("research response was not JSON, using raw text", "error", err)
		return SearchDraft{Title: titleSearchFallback, Content: text}
	}
	return d
}

// Enhance rewrites text following instruction. On any failure, or an empty
// answer, the original text comes back unchanged.
func (w *Writer) Enhance(ctx context.Context, text, instruction string) string {
	out, err := w.provider.Rewrite(ctx, BuildEnhancePrompt(text, instruction))
	if err != nil {
		if !errors.Is(err, providers.ErrMissingAPIKey) {
			w.log.Error("enhance failed", "error", err)
		}
		return text
	}
	if out == "" {
		return text
	}
	return out
}

// GenerateImage makes a thumbnail for a post body and returns it as a data
// URI, or "" when no image could be produced.
func (w *Writer) GenerateImage(ctx context.Context, body string, size types.ImageSize) string {
	img, err := w.provider.GenerateImage(ctx, BuildImagePrompt(body), size)
	if err != nil {
		if !errors.Is(err, providers.ErrMissingAPIKey) {
			w.log.Error("image generation failed", "error", err)
		}
		return ""
	}
	return img.DataURI()
}

// cause strips the transport wrapper so the user-facing message is the
// backend's own.
func cause(err error) error {
	var te *providers.TransportError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}
