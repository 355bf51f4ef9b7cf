package domain

import (
	"strings"
	"time"
)

// Source enumerates the kinds of content the scanners produce.
type Source string

const (
	SourcePaper      Source = "paper"
	SourceBlog       Source = "blog"
	SourceForumStory Source = "forum-story"
	SourceRepository Source = "repository"
)

// Priority is the editorial weight attached to a source by configuration.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form config values onto a Priority; anything unknown is medium.
func ParsePriority(value string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Item is a core entity describing one discovered piece of content.
// Items are values: filtering and ranking never modify them.
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Summary         string    `json:"summary"`
	PublishedAt     time.Time `json:"published_at"`
	Source          Source    `json:"source"`
	SourcePriority  Priority  `json:"source_priority"`
	EngagementScore float64   `json:"engagement_score"`

	Authors  []string `json:"authors,omitempty"`
	Category string   `json:"category,omitempty"`
	Site     string   `json:"site,omitempty"`
}

// Text returns title and summary joined, the haystack for keyword checks.
func (i Item) Text() string {
	if i.Summary == "" {
		return i.Title
	}
	return i.Title + " " + i.Summary
}

// WithDefaults fills fields a fetcher could not determine.
func (i Item) WithDefaults() Item {
	if i.SourcePriority == "" {
		i.SourcePriority = PriorityMedium
	}
	if i.EngagementScore < 0 {
		i.EngagementScore = 0
	}
	return i
}

// Score sub-score names used in ScoreBreakdown.
const (
	ScoreRecency        = "recency"
	ScoreSourcePriority = "source_priority"
	ScoreKeywordDensity = "keyword_density"
	ScoreEngagement     = "engagement"
)

// ScoreBreakdown maps sub-score names to their normalized [0,1] values.
type ScoreBreakdown map[string]float64

// RankedItem decorates an Item with its composite score.
type RankedItem struct {
	Item      Item           `json:"item"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"score_breakdown"`
	RankedAt  time.Time      `json:"ranked_at"`
}

// ProcessingStatus enumerates candidate milestones.
type ProcessingStatus string

const (
	StatusRanked    ProcessingStatus = "ranked"
	StatusAnalyzed  ProcessingStatus = "analyzed"
	StatusDelivered ProcessingStatus = "delivered"
)
