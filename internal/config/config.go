// Package config loads memcore's layered settings: embedded YAML defaults,
// overridden by MEMCORE_* environment variables, overridden in turn by the
// database-backed settings table (storage.SettingsStore), mirroring the
// teacher's env-var-first config.Config with a viper-driven file layer
// underneath and a DB-backed top layer above it.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/memcore/memcore/internal/storage"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the fully-resolved settings surface every memcore package
// reads from. Field names mirror the yaml keys via mapstructure tags so
// viper.Unmarshal can populate it directly.
type Config struct {
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Dedup         DedupConfig         `mapstructure:"dedup"`
	Benchmark     BenchmarkConfig     `mapstructure:"benchmark"`
	AutoTagging   AutoTaggingConfig   `mapstructure:"auto_tagging"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Importance    ImportanceConfig    `mapstructure:"importance"`
	Trash         TrashConfig         `mapstructure:"trash"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Search        SearchConfig        `mapstructure:"search"`
	Decay         DecayConfig         `mapstructure:"decay"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Graph         GraphConfig         `mapstructure:"graph"`
	Links         LinksConfig         `mapstructure:"links"`
	Goal          GoalConfig          `mapstructure:"goal"`
	Backup        BackupConfig        `mapstructure:"backup"`
}

type ChunkingConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxLength  int  `mapstructure:"max_length"`
	TargetSize int  `mapstructure:"target_size"`
}

type DedupConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	HashEnabled         bool    `mapstructure:"hash_enabled"`
	SkipInsertOnMatch   bool    `mapstructure:"skip_insert_on_match"`
	CandidatePool       int     `mapstructure:"candidate_pool"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// BenchmarkConfig governs the benchmark-artifact write path: content
// tagged for load-testing or evaluation runs, excluded from enrichment and
// optionally from indexing/chunking so bulk benchmark writes stay cheap.
type BenchmarkConfig struct {
	Indexed           bool    `mapstructure:"indexed"`
	Chunking          bool    `mapstructure:"chunking"`
	DefaultImportance float64 `mapstructure:"default_importance"`
}

type AutoTaggingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ScoringConfig selects the retrieval fusion mode; kept separate from
// SearchConfig because it's the one search setting spec's settings
// vocabulary names outside the search.* namespace.
type ScoringConfig struct {
	UseRRF bool `mapstructure:"use_rrf"`
}

type ImportanceConfig struct {
	AutoAdjust bool `mapstructure:"auto_adjust"`
}

// TrashConfig controls automatic purge of archived (not superseded)
// memories; zero disables it.
type TrashConfig struct {
	AutoPurgeDays int `mapstructure:"auto_purge_days"`
}

type ObservabilityConfig struct {
	LogEvents bool `mapstructure:"log_events"`
}

type SearchConfig struct {
	VectorCandidatePool  int     `mapstructure:"vector_candidate_pool"`
	DefaultLimit         int     `mapstructure:"default_limit"`
	RRFK                 float64 `mapstructure:"rrf_k"`
	RecencyHalfLifeDays  float64 `mapstructure:"recency_half_life_days"`
	ImportanceBoost      float64 `mapstructure:"importance_boost"`
	MetadataDownrank     float64 `mapstructure:"metadata_downrank"`
	WeightVector         float64 `mapstructure:"weight_vector"`
	WeightFTS            float64 `mapstructure:"weight_fts"`
	WeightRecency        float64 `mapstructure:"weight_recency"`
	WeightFrequency      float64 `mapstructure:"weight_frequency"`
	LinkExpansionFloor   float64 `mapstructure:"link_expansion_floor"`
	LinkExpansionBudget  int     `mapstructure:"link_expansion_budget"`
	ResultSetTTLSeconds  int     `mapstructure:"result_set_ttl_seconds"`
}

type DecayConfig struct {
	ArchiveAgeDays      int     `mapstructure:"archive_age_days"`
	ProtectedImportance float64 `mapstructure:"protected_importance"`
	Floor               float64 `mapstructure:"floor"`
	GracePeriodDays     int     `mapstructure:"grace_period_days"`
}

type ConsolidationConfig struct {
	MinSimilarity float64 `mapstructure:"min_similarity"`
	MinSize       int     `mapstructure:"min_size"`
}

type GraphConfig struct {
	CoOccurrenceThreshold   int `mapstructure:"co_occurrence_threshold"`
	MaxCommunityIterations  int `mapstructure:"max_community_iterations"`
}

type LinksConfig struct {
	CoRetrievalWindowHours      int     `mapstructure:"co_retrieval_window_hours"`
	CoRetrievalThreshold        int     `mapstructure:"co_retrieval_threshold"`
	CoRetrievalStrengthCeiling float64 `mapstructure:"co_retrieval_strength_ceiling"`
}

type GoalConfig struct {
	AutolinkThreshold float64 `mapstructure:"autolink_threshold"`
}

// BackupConfig governs the automated backup service: where backups land,
// how often they run, how long each tier of backup is kept, and whether
// they are encrypted at rest.
type BackupConfig struct {
	BackupDir        string `mapstructure:"backup_dir"`
	IntervalHours    int    `mapstructure:"interval_hours"`
	VerifyBackups    bool   `mapstructure:"verify_backups"`
	Encrypt          bool   `mapstructure:"encrypt"`
	RetentionHourly  int    `mapstructure:"retention_hourly"`
	RetentionDaily   int    `mapstructure:"retention_daily"`
	RetentionWeekly  int    `mapstructure:"retention_weekly"`
	RetentionMonthly int    `mapstructure:"retention_monthly"`
}

// Load builds a Config from the embedded YAML defaults, environment
// variables prefixed MEMCORE_ (nested keys joined by underscore, e.g.
// MEMCORE_DEDUP_SIMILARITY_THRESHOLD), and finally whatever is present in
// the settings table, which takes precedence over both. settings may be
// nil to skip the DB layer (e.g. before a backend is open).
func Load(ctx context.Context, settings storage.SettingsStore) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultsYAML)); err != nil {
		return nil, fmt.Errorf("config: read embedded defaults: %w", err)
	}

	v.SetEnvPrefix("MEMCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindAllEnvKeys(v)

	if settings != nil {
		all, err := settings.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("config: load db settings: %w", err)
		}
		for key, value := range all {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// bindAllEnvKeys walks every key in the defaults document so viper knows
// to check the corresponding MEMCORE_ environment variable even when the
// key is never explicitly read via v.Get before Unmarshal.
func bindAllEnvKeys(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}
}
