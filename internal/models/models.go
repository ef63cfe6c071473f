package models

import "time"

// MediaKind selects the library manager an item belongs to. The two kinds
// share one table shape; kind-specific wire details live in the methods
// below so callers never branch on the kind themselves.
type MediaKind string

const (
	KindMovie MediaKind = "movie"
	KindShow  MediaKind = "show"
)

// ConnectionName returns the service_connections row name for this kind.
func (k MediaKind) ConnectionName() string {
	if k == KindShow {
		return "sonarr"
	}
	return "radarr"
}

// ResourcePath is the /api/v3 resource for item list and delete calls.
func (k MediaKind) ResourcePath() string {
	if k == KindShow {
		return "series"
	}
	return "movie"
}

// EditorIDKey is the id-list field name of the bulk editor endpoint.
func (k MediaKind) EditorIDKey() string {
	if k == KindShow {
		return "seriesIds"
	}
	return "movieIds"
}

// ExclusionParam is the query flag that controls import-list exclusion on
// destructive deletes. Radarr and Sonarr spell it differently.
func (k MediaKind) ExclusionParam() string {
	if k == KindShow {
		return "addExclusion"
	}
	return "addImportListExclusion"
}

// Score is the retention decision for a media item. Stored as the display
// string so the table reads naturally in psql.
type Score string

const (
	ScoreNotScored   Score = "Not Scored"
	ScoreKeep        Score = "Keep"
	ScoreDelete      Score = "Delete"
	ScoreSeasonal    Score = "Seasonal" // shows only
	ScoreWatchedKeep Score = "Tautulli Keep"
	ScoreArchived    Score = "Archived" // legacy terminal state, never set by current code
)

// ManagedScores are the states the AI scoring pass must not touch.
var ManagedScores = []Score{ScoreKeep, ScoreDelete, ScoreWatchedKeep, ScoreSeasonal, ScoreArchived}

type MediaItem struct {
	ID                  int64      `json:"id"`
	Kind                MediaKind  `json:"kind"`
	RemoteID            int64      `json:"remote_id"`
	TMDBID              *int64     `json:"tmdb_id,omitempty"`
	TVDBID              *int64     `json:"tvdb_id,omitempty"`
	Title               string     `json:"title"`
	Year                int        `json:"year"`
	SizeGB              float64    `json:"size_gb"`
	Overview            string     `json:"overview"`
	CastList            string     `json:"cast_list"`
	Labels              string     `json:"labels"` // last-seen remote tag names, comma-joined
	Score               Score      `json:"score"`
	AIScore             *int       `json:"ai_score,omitempty"`
	MarkedForDeletionAt *time.Time `json:"marked_for_deletion_at,omitempty"`
	DeleteAt            *time.Time `json:"delete_at,omitempty"`
	LocalPosterPath     string     `json:"local_poster_path,omitempty"`
}

// ServiceConnection holds the per-service endpoint plus the retention knobs
// the core consumes. The tautulli row uses RetentionDays only.
type ServiceConnection struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	URL             string  `json:"url"`
	APIKey          string  `json:"-"`
	GraceDays       int     `json:"grace_days"`
	RetentionDays   int     `json:"retention_days"`
	AIRules         string  `json:"ai_rules"`
	AIRuleProposals *string `json:"ai_rule_proposals,omitempty"`
}

// WatchEvent is one playback record mirrored from the watch-history service.
type WatchEvent struct {
	ID           int64     `json:"id"`
	RowID        int64     `json:"row_id"`
	Title        string    `json:"title"` // remote full display title, used for exact rescue matching
	User         string    `json:"user"`
	WatchedAt    time.Time `json:"watched_at"`
	State        string    `json:"state"`
	DurationMins int       `json:"duration_mins"`
}

// ScheduleEntry is one recurring trigger row. Days uses 0=Monday.
type ScheduleEntry struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Time    string     `json:"time"` // "HH:MM"
	Days    []int      `json:"days"`
	Tasks   []string   `json:"tasks"`
	Enabled bool       `json:"enabled"`
	LastRun *time.Time `json:"last_run,omitempty"`
}
