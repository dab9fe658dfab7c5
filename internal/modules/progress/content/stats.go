package content

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const WordsPerMinute = 200

type StatsInput struct {
	Content       string
	TotalVersions int
	IsPublished   bool
	FirstCreated  time.Time
	LastUpdated   time.Time
}

type Stats struct {
	WordCount int `json:"word_count"`
	// CharacterCount counts Unicode code points, so a character outside the
	// Basic Multilingual Plane counts once rather than as two UTF-16 units.
	CharacterCount     int       `json:"character_count"`
	LineCount          int       `json:"line_count"`
	HeadingCount       int       `json:"heading_count"`
	ReadingTimeMinutes int       `json:"reading_time_minutes"`
	TotalVersions      int       `json:"total_versions"`
	IsPublished        bool      `json:"is_published"`
	FirstCreated       time.Time `json:"first_created"`
	LastUpdated        time.Time `json:"last_updated"`
	DaysSinceUpdate    int       `json:"days_since_update"`
	TableOfContents    []Heading `json:"table_of_contents"`
}

// DeriveStats is a pure function of its input and now.
func DeriveStats(in StatsInput, now time.Time) Stats {
	words := WordCount(in.Content)
	headings := Headings(in.Content)
	return Stats{
		WordCount:          words,
		CharacterCount:     utf8.RuneCountInString(in.Content),
		LineCount:          lineCount(in.Content),
		HeadingCount:       len(headings),
		ReadingTimeMinutes: ReadingTime(words),
		TotalVersions:      in.TotalVersions,
		IsPublished:        in.IsPublished,
		FirstCreated:       in.FirstCreated,
		LastUpdated:        in.LastUpdated,
		DaysSinceUpdate:    DaysBetween(in.LastUpdated, now),
		TableOfContents:    headings,
	}
}

// ReadingTime is ceil(words / WordsPerMinute).
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// DaysBetween is floor((now - from) / 24h), never negative.
func DaysBetween(from, now time.Time) int {
	if from.IsZero() || !now.After(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
