package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ibeckermayer/autobip/internal/config"
	"github.com/ibeckermayer/autobip/internal/logging"
	"github.com/ibeckermayer/autobip/internal/types"
	"github.com/ibeckermayer/autobip/internal/writer"
	"github.com/ibeckermayer/autobip/internal/writer/providers"
)

var (
	ErrDraftNotFound        = errors.New("draft not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoActivities         = errors.New("no activities match the given ids")
	ErrInvalidTransition    = errors.New("draft status cannot move backwards")
)

const (
	trendSource   = "Trend Alert"
	githubSource  = "GitHub Activity"
	sourceLinkFmt = "%s\n\nSource: %s"
)

// Generator produces content. *writer.Writer satisfies it; its methods never
// fail, they degrade to placeholder results.
type Generator interface {
	GenerateDraft(ctx context.Context, activities []string, tone types.Tone, strategy types.ContentStrategy) writer.Generated
	DetectTrends(ctx context.Context, industry string) []types.Notification
	Research(ctx context.Context, topic string) writer.SearchDraft
	Enhance(ctx context.Context, text, instruction string) string
	GenerateImage(ctx context.Context, body string, size types.ImageSize) string
}

// App holds the application state: activities, drafts, notifications and
// the active draft. All state lives in memory for the life of the process.
type App struct {
	mu      sync.RWMutex
	journal providers.Journal // immutable after creation

	// Mutable fields - use getSnapshot() for concurrent access.
	config *config.Config
	writer Generator

	activities    []types.Activity
	drafts        []types.Draft // newest first
	notifications []types.Notification
	activeDraftID string

	log *slog.Logger
	now func() time.Time
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config *config.Config
	writer Generator
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config: a.config,
		writer: a.writer,
	}
}

// New creates a new App instance. journal may be nil; it is handed to
// writers created by ReloadConfig.
func New(cfg *config.Config, w Generator, journal providers.Journal) *App {
	return &App{
		config:  cfg,
		writer:  w,
		journal: journal,
		log:     logging.Component("app"),
		now:     time.Now,
	}
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// ImportActivities prepends newly imported activities. Missing ids are
// assigned. The stored copies are returned.
func (a *App) ImportActivities(items []types.Activity) []types.Activity {
	imported := make([]types.Activity, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = newActivityID()
		}
		if item.Source == "" {
			item.Source = types.SourceGitHub
		}
		imported[i] = item
	}

	a.mu.Lock()
	a.activities = append(append([]types.Activity(nil), imported...), a.activities...)
	a.mu.Unlock()

	a.log.Info("activities imported", "count", len(imported))
	return imported
}

// Activities returns a copy of all activities, newest first.
func (a *App) Activities() []types.Activity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.Activity{}, a.activities...)
}

// ToggleActivitySelection flips the selected flag. Unknown ids are ignored;
// the return value reports whether the activity exists.
func (a *App) ToggleActivitySelection(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.activities {
		if a.activities[i].ID == id {
			a.activities[i].Selected = !a.activities[i].Selected
			return true
		}
	}
	return false
}

// GenerateDraftFromSelection turns the activities with the given ids into a
// new active draft. Generation failures still produce a draft carrying the
// placeholder text; the only error is an empty match.
func (a *App) GenerateDraftFromSelection(ctx context.Context, ids []string, strategy types.ContentStrategy) (types.Draft, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	a.mu.RLock()
	var selected []types.Activity
	for _, act := range a.activities {
		if wanted[act.ID] {
			selected = append(selected, act)
		}
	}
	s := snapshot{config: a.config, writer: a.writer}
	a.mu.RUnlock()

	if len(selected) == 0 {
		return types.Draft{}, ErrNoActivities
	}

	descriptions := make([]string, len(selected))
	for i, act := range selected {
		descriptions[i] = act.Description
	}

	a.log.Info("generating draft", "activities", len(selected), "strategy", strategy)
	gen := s.writer.GenerateDraft(ctx, descriptions, s.config.Analysis.DefaultTone, strategy)

	for i := range selected {
		selected[i].Selected = false
	}
	d := types.Draft{
		ID:                newDraftID(),
		Title:             gen.Title,
		Source:            sourceLabel(selected),
		SourceIcon:        sourceIcon(selected[0].Source),
		Content:           []types.ThreadItem{{ID: newItemID(), Content: gen.Content, IsMain: true}},
		Status:            types.StatusDraft,
		CreatedAt:         a.now(),
		RelatedActivities: selected,
	}

	a.mu.Lock()
	a.drafts = append([]types.Draft{d}, a.drafts...)
	for i := range a.activities {
		if wanted[a.activities[i].ID] {
			a.activities[i].Selected = false
		}
	}
	a.activeDraftID = d.ID
	a.mu.Unlock()

	return d.Clone(), nil
}

// sourceLabel describes where a draft's activities came from.
func sourceLabel(acts []types.Activity) string {
	if len(acts) > 1 {
		return fmt.Sprintf("%d updates", len(acts))
	}
	switch acts[0].Source {
	case types.SourceLinear:
		return "Linear Activity"
	case types.SourceJira:
		return "Jira Activity"
	}
	return githubSource
}

func sourceIcon(src types.Source) types.SourceIcon {
	switch src {
	case types.SourceLinear:
		return types.IconLinear
	case types.SourceJira:
		return types.IconJira
	}
	return types.IconGitHub
}

// ResearchTrend writes a search-grounded draft about topic and makes it
// active. An empty topic uses the configured research topic.
func (a *App) ResearchTrend(ctx context.Context, topic string) types.Draft {
	s := a.getSnapshot()
	if strings.TrimSpace(topic) == "" {
		topic = s.config.Trends.ResearchTopic
	}

	a.log.Info("researching topic", "topic", topic)
	res := s.writer.Research(ctx, topic)

	body := res.Content
	if res.URL != "" {
		body = fmt.Sprintf(sourceLinkFmt, res.Content, res.URL)
	}
	d := types.Draft{
		ID:         newDraftID(),
		Title:      res.Title,
		Source:     trendSource,
		SourceIcon: types.IconNews,
		Content:    []types.ThreadItem{{ID: newItemID(), Content: body, IsMain: true}},
		Status:     types.StatusDraft,
		CreatedAt:  a.now(),
	}

	a.mu.Lock()
	a.drafts = append([]types.Draft{d}, a.drafts...)
	a.activeDraftID = d.ID
	a.mu.Unlock()

	return d.Clone()
}

// ActOnNotification removes the notification, then researches its action
// query. The notification is gone whether or not research succeeds.
func (a *App) ActOnNotification(ctx context.Context, id string) (types.Draft, error) {
	n, ok := a.takeNotification(id)
	if !ok {
		return types.Draft{}, ErrNotificationNotFound
	}
	return a.ResearchTrend(ctx, n.ActionQuery), nil
}

func (a *App) takeNotification(id string) (types.Notification, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, n := range a.notifications {
		if n.ID == id {
			a.notifications = append(a.notifications[:i:i], a.notifications[i+1:]...)
			return n, true
		}
	}
	return types.Notification{}, false
}

// DismissNotification removes a notification without acting on it.
func (a *App) DismissNotification(id string) bool {
	_, ok := a.takeNotification(id)
	return ok
}

// Notifications returns a copy of the pending notifications in arrival order.
func (a *App) Notifications() []types.Notification {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.Notification{}, a.notifications...)
}

// AddNotifications appends notifications, skipping any whose title or
// action query already matches a pending one. Returns how many were added.
func (a *App) AddNotifications(ns []types.Notification) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]bool, 2*len(a.notifications))
	for _, n := range a.notifications {
		markSeen(seen, n)
	}

	var added []types.Notification
	for _, n := range ns {
		if isSeen(seen, n) {
			continue
		}
		markSeen(seen, n)
		added = append(added, n)
	}
	a.notifications = append(a.notifications, added...)
	return len(added)
}

func dedupeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func markSeen(seen map[string]bool, n types.Notification) {
	if k := dedupeKey(n.Title); k != "" {
		seen["t:"+k] = true
	}
	if k := dedupeKey(n.ActionQuery); k != "" {
		seen["q:"+k] = true
	}
}

func isSeen(seen map[string]bool, n types.Notification) bool {
	if k := dedupeKey(n.Title); k != "" && seen["t:"+k] {
		return true
	}
	if k := dedupeKey(n.ActionQuery); k != "" && seen["q:"+k] {
		return true
	}
	return false
}

// DetectTrends runs trend detection for industry, or the configured
// industry when empty, and queues the results. Returns how many were new.
func (a *App) DetectTrends(ctx context.Context, industry string) int {
	s := a.getSnapshot()
	if strings.TrimSpace(industry) == "" {
		industry = s.config.Trends.Industry
	}

	found := s.writer.DetectTrends(ctx, industry)
	added := a.AddNotifications(found)
	a.log.Info("trend detection complete", "industry", industry, "found", len(found), "added", added)
	return added
}

// Drafts returns a copy of every draft, newest first.
func (a *App) Drafts() []types.Draft {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]types.Draft, len(a.drafts))
	for i, d := range a.drafts {
		out[i] = d.Clone()
	}
	return out
}

// VisibleDrafts returns the drafts listed under tab. Tabs without a status
// list nothing.
func (a *App) VisibleDrafts(tab types.Tab) []types.Draft {
	status, ok := tab.Status()
	if !ok {
		return []types.Draft{}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := []types.Draft{}
	for _, d := range a.drafts {
		if d.Status == status {
			out = append(out, d.Clone())
		}
	}
	return out
}

// Draft returns a copy of one draft.
func (a *App) Draft(id string) (types.Draft, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i := a.indexOf(id)
	if i < 0 {
		return types.Draft{}, ErrDraftNotFound
	}
	return a.drafts[i].Clone(), nil
}

// indexOf must be called with mu held.
func (a *App) indexOf(id string) int {
	for i := range a.drafts {
		if a.drafts[i].ID == id {
			return i
		}
	}
	return -1
}

// SelectDraft makes a draft the active one.
func (a *App) SelectDraft(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.indexOf(id) < 0 {
		return ErrDraftNotFound
	}
	a.activeDraftID = id
	return nil
}

// ActiveDraft returns the draft being edited, if any.
func (a *App) ActiveDraft() (types.Draft, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.activeDraftID == "" {
		return types.Draft{}, false
	}
	i := a.indexOf(a.activeDraftID)
	if i < 0 {
		return types.Draft{}, false
	}
	return a.drafts[i].Clone(), true
}

// normalizeContent guarantees at least one thread item with the first
// marked as the main post.
func normalizeContent(items []types.ThreadItem) []types.ThreadItem {
	if len(items) == 0 {
		return []types.ThreadItem{{ID: newItemID(), IsMain: true}}
	}
	out := append([]types.ThreadItem(nil), items...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = newItemID()
		}
		out[i].IsMain = i == 0
	}
	return out
}

// UpdateDraft replaces a stored draft by id. An empty status or zero
// creation time keeps the stored value.
func (a *App) UpdateDraft(d types.Draft) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(d.ID)
	if i < 0 {
		return ErrDraftNotFound
	}
	current := a.drafts[i]

	if d.Status == "" {
		d.Status = current.Status
	}
	if !current.Status.CanMoveTo(d.Status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, d.Status)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = current.CreatedAt
	}

	d = d.Clone()
	d.Content = normalizeContent(d.Content)
	a.drafts[i] = d
	return nil
}

// editDraft applies fn to a stored draft under the write lock.
func (a *App) editDraft(id string, fn func(d *types.Draft)) (types.Draft, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return types.Draft{}, ErrDraftNotFound
	}
	d := &a.drafts[i]
	d.Content = normalizeContent(d.Content)
	fn(d)
	return d.Clone(), nil
}

// UpdateDraftBody replaces the main post text.
func (a *App) UpdateDraftBody(id, text string) (types.Draft, error) {
	return a.editDraft(id, func(d *types.Draft) {
		d.Content[0].Content = text
	})
}

// UpdateDraftTitle renames a draft.
func (a *App) UpdateDraftTitle(id, title string) (types.Draft, error) {
	return a.editDraft(id, func(d *types.Draft) {
		d.Title = title
	})
}

// PublishDraft marks a draft posted and clears the active draft. Publishing
// twice is harmless; unknown ids change nothing.
func (a *App) PublishDraft(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return false
	}
	a.drafts[i].Status = types.StatusPosted
	a.activeDraftID = ""
	return true
}

// EnhanceDraft rewrites the main post text. An empty instruction uses the
// default refinement for the configured tone. If the rewrite fails the text
// is left as it was.
func (a *App) EnhanceDraft(ctx context.Context, id, instruction string) (types.Draft, error) {
	d, err := a.Draft(id)
	if err != nil {
		return types.Draft{}, err
	}
	s := a.getSnapshot()
	if strings.TrimSpace(instruction) == "" {
		instruction = writer.DefaultEnhanceInstruction(s.config.Analysis.DefaultTone)
	}

	text := s.writer.Enhance(ctx, d.Body(), instruction)
	return a.UpdateDraftBody(id, text)
}

// GenerateDraftImage attaches a generated thumbnail to a draft. When no
// image can be produced the draft is returned unchanged.
func (a *App) GenerateDraftImage(ctx context.Context, id string, size types.ImageSize) (types.Draft, error) {
	d, err := a.Draft(id)
	if err != nil {
		return types.Draft{}, err
	}
	if !size.Valid() {
		size = types.ImageSize1K
	}

	uri := a.getSnapshot().writer.GenerateImage(ctx, d.Body(), size)
	if uri == "" {
		a.log.Warn("no image produced", "draft", id)
		return d, nil
	}
	return a.editDraft(id, func(d *types.Draft) {
		d.ImageURL = uri
	})
}

// RemoveDraftImage detaches a draft's thumbnail.
func (a *App) RemoveDraftImage(id string) (types.Draft, error) {
	return a.editDraft(id, func(d *types.Draft) {
		d.ImageURL = ""
	})
}

// ReloadConfig reloads the configuration from path (the default location
// when empty) and rebuilds the writer.
// In-memory state is kept.
func (a *App) ReloadConfig(ctx context.Context, path string) error {
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(path)
	}
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	newWriter, err := writer.New(ctx, cfg.Analysis, a.journal)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.writer = newWriter
	a.mu.Unlock()

	a.log.Info("configuration reloaded")
	return nil
}
