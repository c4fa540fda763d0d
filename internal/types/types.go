package types

import "time"

// Source identifies where an activity was imported from
type Source string

const (
	SourceGitHub Source = "github"
	SourceLinear Source = "linear"
	SourceJira   Source = "jira"
)

// ActivityType classifies a unit of developer work
type ActivityType string

const (
	ActivityFeature ActivityType = "feature"
	ActivityFix     ActivityType = "fix"
	ActivityChore   ActivityType = "chore"
	ActivityContent ActivityType = "content"
)

// Activity represents a commit or ticket that can become a draft
type Activity struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	Source      Source       `json:"source"`
	Type        ActivityType `json:"type"`
	Project     string       `json:"project"`
	Selected    bool         `json:"selected"`
}

// SourceIcon is the badge shown next to a draft
type SourceIcon string

const (
	IconGitHub SourceIcon = "github"
	IconLinear SourceIcon = "linear"
	IconJira   SourceIcon = "jira"
	IconNews   SourceIcon = "news"
)

// DraftStatus is the lifecycle state of a draft
type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"
	StatusScheduled DraftStatus = "scheduled"
	StatusPosted    DraftStatus = "posted"
)

// rank orders statuses so transitions can be checked for direction.
func (s DraftStatus) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusScheduled:
		return 1
	case StatusPosted:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status
func (s DraftStatus) Valid() bool {
	return s.rank() >= 0
}

// CanMoveTo reports whether a draft in status s may be set to next.
// Drafts only move forward.
func (s DraftStatus) CanMoveTo(next DraftStatus) bool {
	if !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// ThreadItem is one post in a draft's thread. Index 0 is the main body.
type ThreadItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	IsMain  bool   `json:"is_main"`
}

// Draft is an editable social post derived from activities or a trend
type Draft struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Source            string       `json:"source"`
	SourceIcon        SourceIcon   `json:"source_icon"`
	Content           []ThreadItem `json:"content"`
	Status            DraftStatus  `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
	ScheduledFor      *time.Time   `json:"scheduled_for,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	RelatedActivities []Activity   `json:"related_activities,omitempty"`
}

// Body returns the main body text, or "" when the draft has no items
func (d *Draft) Body() string {
	if len(d.Content) == 0 {
		return ""
	}
	return d.Content[0].Content
}

// Clone returns a deep copy so callers can't reach into store state
func (d Draft) Clone() Draft {
	c := d
	c.Content = append([]ThreadItem(nil), d.Content...)
	if d.RelatedActivities != nil {
		c.RelatedActivities = append([]Activity(nil), d.RelatedActivities...)
	}
	if d.ScheduledFor != nil {
		t := *d.ScheduledFor
		c.ScheduledFor = &t
	}
	return c
}

// NotificationType distinguishes viral topics from unanswered questions
type NotificationType string

const (
	NotificationTrend NotificationType = "trend"
	NotificationGap   NotificationType = "gap"
)

// Notification is a content opportunity found by trend detection
type Notification struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	ActionQuery string           `json:"action_query"`
}

// Tone selects the stylistic voice of a generated post
type Tone string

const (
	ToneProfessional  Tone = "Professional"
	ToneHumbleBuilder Tone = "Humble Builder"
	ToneContrarian    Tone = "Contrarian"
	ToneDataFocused   Tone = "Data-Focused"
)

// ContentStrategy selects the structure of a generated post
type ContentStrategy string

const (
	StrategyStandardUpdate ContentStrategy = "Standard Update"
	StrategyBuildInPublic  ContentStrategy = "Build in Public Journey"
)

// Tab is a dashboard view
type Tab string

const (
	TabLogs         Tab = "LOGS"
	TabDrafts       Tab = "DRAFTS"
	TabScheduled    Tab = "SCHEDULED"
	TabPosted       Tab = "POSTED"
	TabAnalytics    Tab = "ANALYTICS"
	TabIntegrations Tab = "INTEGRATIONS"
)

// Status returns the draft status a tab lists, if any
func (t Tab) Status() (DraftStatus, bool) {
	switch t {
	case TabDrafts:
		return StatusDraft, true
	case TabScheduled:
		return StatusScheduled, true
	case TabPosted:
		return StatusPosted, true
	}
	return "", false
}

// ImageSize is the requested resolution class for thumbnails
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// Valid reports whether s is a supported resolution class
func (s ImageSize) Valid() bool {
	switch s {
	case ImageSize1K, ImageSize2K, ImageSize4K:
		return true
	}
	return false
}
