package writer

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"

	"github.com/ibeckermayer/autobip/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	titleGenerationFailed = "Generation Failed"
	titleSearchFallback   = "Industry Update"
	titleSearchDefault    = "Industry Insight"
)

// Generated is the {title, content} pair produced for a draft.
type Generated struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchDraft is a generated post with an optional source link.
type SearchDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// ParseError reports a response that could not be decoded.
type ParseError struct {
	Kind string // "draft", "trends" or "search"
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// failedDraft is the degraded result carrying the failure message.
func failedDraft(err error) Generated {
	return Generated{
		Title:   titleGenerationFailed,
		Content: fmt.Sprintf("Failed to generate draft. Error: %v", err),
	}
}

// DecodeDraft decodes a structured draft response.
func DecodeDraft(raw string) (Generated, error) {
	var g Generated
	if err := json.UnmarshalFromString(raw, &g); err != nil {
		return Generated{}, &ParseError{Kind: "draft", Raw: raw, Err: err}
	}
	return g, nil
}

// ParseDraftResponse decodes a structured draft response. It never fails:
// undecodable input yields the "Generation Failed" draft.
func ParseDraftResponse(raw string) Generated {
	g, err := DecodeDraft(raw)
	if err != nil {
		return failedDraft(err)
	}
	return g
}

// StripFences removes markdown code fence markers and surrounding space.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

type trendItem struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	ActionQuery string `json:"actionQuery"`
	Type        string `json:"type"`
}

// DecodeTrendList decodes a trend array into notifications stamped with now.
// Each element is decoded on its own, so a malformed element yields empty
// fields without dropping its neighbours.
func DecodeTrendList(raw string, now time.Time) ([]types.Notification, error) {
	var elems []jsoniter.RawMessage
	if err := json.UnmarshalFromString(StripFences(raw), &elems); err != nil {
		return nil, &ParseError{Kind: "trends", Raw: raw, Err: err}
	}

	notifications := make([]types.Notification, 0, len(elems))
	for i, elem := range elems {
		item := decodeTrendItem(elem)
		kind := types.NotificationTrend
		if item.Type == string(types.NotificationGap) {
			kind = types.NotificationGap
		}
		notifications = append(notifications, types.Notification{
			ID:          fmt.Sprintf("notif-%d-%d", now.UnixMilli(), i),
			Title:       item.Title,
			Message:     item.Message,
			Type:        kind,
			Timestamp:   now,
			ActionQuery: item.ActionQuery,
		})
	}
	return notifications, nil
}

// decodeTrendItem reads each known field independently. Fields that are
// missing or not strings come back empty.
func decodeTrendItem(elem jsoniter.RawMessage) trendItem {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil {
		return trendItem{}
	}
	str := func(key string) string {
		var v string
		if raw, ok := fields[key]; ok {
			_ = json.Unmarshal(raw, &v)
		}
		return v
	}
	return trendItem{
		Title:       str("title"),
		Message:     str("message"),
		ActionQuery: str("actionQuery"),
		Type:        str("type"),
	}
}

// ParseTrendList decodes a trend array. Anything that is not a JSON array
// yields an empty, non-nil slice.
func ParseTrendList(raw string, now time.Time) []types.Notification {
	notifications, err := DecodeTrendList(raw, now)
	if err != nil {
		return []types.Notification{}
	}
	return notifications
}

// decodeLenient tries the text as-is, then after jsonrepair.
func decodeLenient(text string, v any) error {
	err := json.UnmarshalFromString(text, v)
	if err == nil {
		return nil
	}
	originalErr := err

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return originalErr
	}
	if err := json.UnmarshalFromString(repaired, v); err != nil {
		return originalErr
	}
	return nil
}

// DecodeSearchDraft decodes a free-text search response. Missing fields are
// defaulted; the url falls back to the first grounding URL.
func DecodeSearchDraft(raw string, groundingURLs []string) (SearchDraft, error) {
	var parsed SearchDraft
	if err := decodeLenient(StripFences(raw), &parsed); err != nil {
		return SearchDraft{}, &ParseError{Kind: "search", Raw: raw, Err: err}
	}

	if parsed.Title == "" {
		parsed.Title = titleSearchDefault
	}
	if parsed.Content == "" {
		parsed.Content = raw
	}
	if parsed.URL == "" && len(groundingURLs) > 0 {
		parsed.URL = groundingURLs[0]
	}
	return parsed, nil
}

// ParseSearchDraft decodes a search response, degrading to the raw text
// under an "Industry Update" title.
func ParseSearchDraft(raw string, groundingURLs []string) SearchDraft {
	d, err := DecodeSearchDraft(raw, groundingURLs)
	if err != nil {
		return SearchDraft{Title: titleSearchFallback, Content: raw}
	}
	return d
}
