// Package config loads devgraph configuration from .devgraph/config.json with
// environment overrides. Components receive the typed structs they need; there
// is no ambient global lookup.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete devgraph configuration
type Config struct {
	Version       int    `json:"version" mapstructure:"version"`
	WorkspaceRoot string `json:"workspaceRoot" mapstructure:"workspaceRoot"`

	Cache       CacheConfig       `json:"cache" mapstructure:"cache"`
	Edges       EdgesConfig       `json:"edges" mapstructure:"edges"`
	Imports     ImportsConfig     `json:"imports" mapstructure:"imports"`
	Metrics     MetricsConfig     `json:"metrics" mapstructure:"metrics"`
	Community   CommunityConfig   `json:"community" mapstructure:"community"`
	Performance PerformanceConfig `json:"performance" mapstructure:"performance"`
	Storage     StorageConfig     `json:"storage" mapstructure:"storage"`
	Archive     ArchiveConfig     `json:"archive" mapstructure:"archive"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// CacheConfig controls the service graph cache.
type CacheConfig struct {
	// BaseTtlSeconds is the TTL for small graphs; large graphs get up to 2x.
	BaseTtlSeconds int `json:"baseTtlSeconds" mapstructure:"baseTtlSeconds"`
	MaxEntries     int `json:"maxEntries" mapstructure:"maxEntries"`
	// SmallGraphSize and LargeGraphSize bound the adaptive TTL interpolation
	// over node+edge count.
	SmallGraphSize int `json:"smallGraphSize" mapstructure:"smallGraphSize"`
	LargeGraphSize int `json:"largeGraphSize" mapstructure:"largeGraphSize"`
	// IncrementalUpdates is accepted but currently always performs a full
	// rebuild. Known limitation.
	IncrementalUpdates bool `json:"incrementalUpdates" mapstructure:"incrementalUpdates"`
}

// EdgesConfig controls edge detection passes.
type EdgesConfig struct {
	EnableImport          bool `json:"enableImport" mapstructure:"enableImport"`
	EnableEditSequence    bool `json:"enableEditSequence" mapstructure:"enableEditSequence"`
	EnableNavigate        bool `json:"enableNavigate" mapstructure:"enableNavigate"`
	EnableModelContext    bool `json:"enableModelContext" mapstructure:"enableModelContext"`
	EnableToolInteraction bool `json:"enableToolInteraction" mapstructure:"enableToolInteraction"`

	EditSequenceWindowSeconds int  `json:"editSequenceWindowSeconds" mapstructure:"editSequenceWindowSeconds"`
	NavigateWindowSeconds     int  `json:"navigateWindowSeconds" mapstructure:"navigateWindowSeconds"`
	Deduplicate               bool `json:"deduplicate" mapstructure:"deduplicate"`
}

// ImportsConfig controls import detection and resolution.
type ImportsConfig struct {
	// Mode selects "ast" (tree-sitter with regex fallback) or "regex".
	Mode               string `json:"mode" mapstructure:"mode"`
	ResolveNodeModules bool   `json:"resolveNodeModules" mapstructure:"resolveNodeModules"`
	ResolveTsPaths     bool   `json:"resolveTsPaths" mapstructure:"resolveTsPaths"`
	MaxFileSizeBytes   int    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// MetricsConfig toggles metric groups.
type MetricsConfig struct {
	EnableCentrality  bool `json:"enableCentrality" mapstructure:"enableCentrality"`
	EnableBetweenness bool `json:"enableBetweenness" mapstructure:"enableBetweenness"`
	EnableCloseness   bool `json:"enableCloseness" mapstructure:"enableCloseness"`
	EnableClustering  bool `json:"enableClustering" mapstructure:"enableClustering"`
	// BetweennessSampleCap bounds the sampled betweenness approximation.
	BetweennessSampleCap int `json:"betweennessSampleCap" mapstructure:"betweennessSampleCap"`
}

// CommunityConfig controls community detection.
type CommunityConfig struct {
	// Algorithm is "louvain" or "components".
	Algorithm     string  `json:"algorithm" mapstructure:"algorithm"`
	Resolution    float64 `json:"resolution" mapstructure:"resolution"`
	MaxIterations int     `json:"maxIterations" mapstructure:"maxIterations"`
}

// PerformanceConfig holds level-of-detail thresholds.
type PerformanceConfig struct {
	LargeGraphNodes int `json:"largeGraphNodes" mapstructure:"largeGraphNodes"`
	LargeGraphEdges int `json:"largeGraphEdges" mapstructure:"largeGraphEdges"`
}

// StorageConfig locates the captured-activity database.
type StorageConfig struct {
	// Path is relative to the workspace root unless absolute.
	Path string `json:"path" mapstructure:"path"`
}

// ArchiveConfig controls the compressed snapshot archive.
type ArchiveConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Dir          string `json:"dir" mapstructure:"dir"`
	MaxSnapshots int    `json:"maxSnapshots" mapstructure:"maxSnapshots"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		WorkspaceRoot: ".",
		Cache: CacheConfig{
			BaseTtlSeconds:     300,
			MaxEntries:         10,
			SmallGraphSize:     500,
			LargeGraphSize:     5000,
			IncrementalUpdates: false,
		},
		Edges: EdgesConfig{
			EnableImport:              true,
			EnableEditSequence:        true,
			EnableNavigate:            true,
			EnableModelContext:        true,
			EnableToolInteraction:     true,
			EditSequenceWindowSeconds: 300,
			NavigateWindowSeconds:     300,
			Deduplicate:               true,
		},
		Imports: ImportsConfig{
			Mode:               "ast",
			ResolveNodeModules: true,
			ResolveTsPaths:     true,
			MaxFileSizeBytes:   1000000,
		},
		Metrics: MetricsConfig{
			EnableCentrality:     true,
			EnableBetweenness:    true,
			EnableCloseness:      true,
			EnableClustering:     true,
			BetweennessSampleCap: 100,
		},
		Community: CommunityConfig{
			Algorithm:     "louvain",
			Resolution:    1.0,
			MaxIterations: 10,
		},
		Performance: PerformanceConfig{
			LargeGraphNodes: 2000,
			LargeGraphEdges: 10000,
		},
		Storage: StorageConfig{
			Path: ".devgraph/activity.db",
		},
		Archive: ArchiveConfig{
			Enabled:      true,
			Dir:          ".devgraph/snapshots",
			MaxSnapshots: 20,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .devgraph/config.json under the
// workspace root. Environment variables prefixed DEVGRAPH_ override file
// values (e.g. DEVGRAPH_CACHE_BASETTLSECONDS=60). A missing config file
// yields the defaults.
func LoadConfig(workspaceRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	setDefaults(v, defaults)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(workspaceRoot, ".devgraph"))

	v.SetEnvPrefix("DEVGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.WorkspaceRoot == "" || cfg.WorkspaceRoot == "." {
		cfg.WorkspaceRoot = workspaceRoot
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("version", c.Version)
	v.SetDefault("workspaceRoot", c.WorkspaceRoot)

	v.SetDefault("cache.baseTtlSeconds", c.Cache.BaseTtlSeconds)
	v.SetDefault("cache.maxEntries", c.Cache.MaxEntries)
	v.SetDefault("cache.smallGraphSize", c.Cache.SmallGraphSize)
	v.SetDefault("cache.largeGraphSize", c.Cache.LargeGraphSize)
	v.SetDefault("cache.incrementalUpdates", c.Cache.IncrementalUpdates)

	v.SetDefault("edges.enableImport", c.Edges.EnableImport)
	v.SetDefault("edges.enableEditSequence", c.Edges.EnableEditSequence)
	v.SetDefault("edges.enableNavigate", c.Edges.EnableNavigate)
	v.SetDefault("edges.enableModelContext", c.Edges.EnableModelContext)
	v.SetDefault("edges.enableToolInteraction", c.Edges.EnableToolInteraction)
	v.SetDefault("edges.editSequenceWindowSeconds", c.Edges.EditSequenceWindowSeconds)
	v.SetDefault("edges.navigateWindowSeconds", c.Edges.NavigateWindowSeconds)
	v.SetDefault("edges.deduplicate", c.Edges.Deduplicate)

	v.SetDefault("imports.mode", c.Imports.Mode)
	v.SetDefault("imports.resolveNodeModules", c.Imports.ResolveNodeModules)
	v.SetDefault("imports.resolveTsPaths", c.Imports.ResolveTsPaths)
	v.SetDefault("imports.maxFileSizeBytes", c.Imports.MaxFileSizeBytes)

	v.SetDefault("metrics.enableCentrality", c.Metrics.EnableCentrality)
	v.SetDefault("metrics.enableBetweenness", c.Metrics.EnableBetweenness)
	v.SetDefault("metrics.enableCloseness", c.Metrics.EnableCloseness)
	v.SetDefault("metrics.enableClustering", c.Metrics.EnableClustering)
	v.SetDefault("metrics.betweennessSampleCap", c.Metrics.BetweennessSampleCap)

	v.SetDefault("community.algorithm", c.Community.Algorithm)
	v.SetDefault("community.resolution", c.Community.Resolution)
	v.SetDefault("community.maxIterations", c.Community.MaxIterations)

	v.SetDefault("performance.largeGraphNodes", c.Performance.LargeGraphNodes)
	v.SetDefault("performance.largeGraphEdges", c.Performance.LargeGraphEdges)

	v.SetDefault("storage.path", c.Storage.Path)

	v.SetDefault("archive.enabled", c.Archive.Enabled)
	v.SetDefault("archive.dir", c.Archive.Dir)
	v.SetDefault("archive.maxSnapshots", c.Archive.MaxSnapshots)

	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.level", c.Logging.Level)
}

// Save writes the configuration to .devgraph/config.json
func (c *Config) Save(workspaceRoot string) error {
	dir := filepath.Join(workspaceRoot, ".devgraph")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return &ConfigError{Field: "cache.maxEntries", Message: "must be positive"}
	}
	if c.Cache.SmallGraphSize > c.Cache.LargeGraphSize {
		return &ConfigError{Field: "cache.smallGraphSize", Message: "must not exceed cache.largeGraphSize"}
	}
	if c.Imports.Mode != "ast" && c.Imports.Mode != "regex" {
		return &ConfigError{Field: "imports.mode", Message: "must be 'ast' or 'regex'"}
	}
	if c.Community.Algorithm != "louvain" && c.Community.Algorithm != "components" {
		return &ConfigError{Field: "community.algorithm", Message: "must be 'louvain' or 'components'"}
	}
	if c.Community.Resolution <= 0 {
		return &ConfigError{Field: "community.resolution", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
