package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ibeckermayer/autobip/internal/types"
)

// Builder renders drafts as standalone HTML pages
type Builder struct {
	template *template.Template
}

// New creates a new preview builder
func New() (*Builder, error) {
	tmpl, err := template.New("preview").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{template: tmpl}, nil
}

// Preview is a rendered draft
type Preview struct {
	DraftID   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// PreviewData is the template data structure
type PreviewData struct {
	Title    string
	Source   string
	Icon     string
	Status   string
	Date     string
	Schedule string
	Image    template.URL
	Items    []ItemData
	Related  []string
}

// ItemData is one post of the thread
type ItemData struct {
	Index      int
	Main       bool
	Paragraphs []string
}

// Build renders a draft
func (b *Builder) Build(d types.Draft) (*Preview, error) {
	if len(d.Content) == 0 {
		return nil, fmt.Errorf("draft %s has no content", d.ID)
	}

	data := PreviewData{
		Title:  d.Title,
		Source: d.Source,
		Icon:   string(d.SourceIcon),
		Status: capitalize(string(d.Status)),
		Date:   d.CreatedAt.Format("Monday, January 2 15:04"),
		Image:  safeImage(d.ImageURL),
		Items:  make([]ItemData, len(d.Content)),
	}
	if d.ScheduledFor != nil {
		data.Schedule = d.ScheduledFor.Format("Jan 2 15:04")
	}
	for i, item := range d.Content {
		data.Items[i] = ItemData{
			Index:      i + 1,
			Main:       i == 0,
			Paragraphs: paragraphs(item.Content),
		}
	}
	for _, act := range d.RelatedActivities {
		data.Related = append(data.Related, fmt.Sprintf("[%s] %s", act.Project, act.Description))
	}

	// Render HTML
	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Preview{
		DraftID:   d.ID,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(d),
		CreatedAt: time.Now(),
	}, nil
}

// Save writes the HTML preview under dir and returns its path.
func (p *Preview) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("draft-%s.html", p.DraftID))
	if err := os.WriteFile(path, []byte(p.HTMLBody), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// safeImage only lets inline images and http(s) links into the page.
func safeImage(u string) template.URL {
	if strings.HasPrefix(u, "data:image/") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") {
		return template.URL(u)
	}
	return ""
}

func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildPlainText(d types.Draft) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s · %s\n\n", d.Title, d.Source, d.Status))

	for i, item := range d.Content {
		if len(d.Content) > 1 {
			buf.WriteString(fmt.Sprintf("%d/%d\n", i+1, len(d.Content)))
		}
		buf.WriteString(item.Content)
		buf.WriteString("\n\n")
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f3f2ef; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #0a66c2; margin-bottom: 5px; font-size: 20px; }
        .meta { color: #666; margin-bottom: 20px; font-size: 13px; }
        .badge { background: #e8f3ff; color: #0a66c2; padding: 2px 8px; border-radius: 12px; font-size: 12px; margin-right: 5px; }
        .item { border-bottom: 1px solid #eee; padding: 15px 0; }
        .item:last-child { border-bottom: none; }
        .item p { margin: 0 0 10px; line-height: 1.5; }
        .index { color: #999; font-size: 12px; }
        .image { width: 100%; border-radius: 6px; margin-top: 10px; }
        .related { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #666; font-size: 13px; }
        .footer { margin-top: 20px; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="meta">
            <span class="badge">{{.Icon}}</span>{{.Source}} · {{.Status}} · {{.Date}}{{if .Schedule}} · scheduled for {{.Schedule}}{{end}}
        </div>

        {{range .Items}}
        <div class="item">
            {{if not .Main}}<div class="index">{{.Index}}</div>{{end}}
            {{range .Paragraphs}}<p>{{.}}</p>{{end}}
        </div>
        {{end}}

        {{if .Image}}<img class="image" src="{{.Image}}" alt="">{{end}}

        {{if .Related}}
        <div class="related">
            Based on:
            <ul>{{range .Related}}<li>{{.}}</li>{{end}}</ul>
        </div>
        {{end}}

        <div class="footer">Preview generated by autobip</div>
    </div>
</body>
</html>`
