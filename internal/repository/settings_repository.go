package repository

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cast"
)

// Setting keys. Batch sizes differ between movies and shows because show
// payloads carry more context per item.
const (
	SettingAIProvider      = "ai_provider"
	SettingAIAPIKey        = "ai_api_key"
	SettingAILearningModel = "ai_learning_model"
	SettingAIScoringModel  = "ai_scoring_model"
	SettingAIBaseURL       = "ai_base_url"
	SettingTMDBAPIKey      = "tmdb_api_key"
	SettingMaxItemsLimit   = "max_items_limit"
	SettingVerboseLogging  = "verbose_logging"

	SettingBatchMoviesLearn = "batch_size_movies_learn"
	SettingBatchMoviesScore = "batch_size_movies_score"
	SettingBatchShowsLearn  = "batch_size_shows_learn"
	SettingBatchShowsScore  = "batch_size_shows_score"
)

var settingDefaults = map[string]string{
	SettingBatchMoviesLearn: "20",
	SettingBatchMoviesScore: "50",
	SettingBatchShowsLearn:  "10",
	SettingBatchShowsScore:  "20",
	SettingMaxItemsLimit:    "0",
	SettingVerboseLogging:   "false",
}

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored value, the built-in default, or "".
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return settingDefaults[key], nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SettingsRepository) GetInt(key string) (int, error) {
	value, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	return cast.ToInt(value), nil
}

func (r *SettingsRepository) GetBool(key string) (bool, error) {
	value, err := r.Get(key)
	if err != nil {
		return false, err
	}
	return cast.ToBool(value), nil
}

func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for k, v := range settingDefaults {
		out[k] = v
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
