// ABOUTME: Run configuration loaded from YAML with environment overrides
// ABOUTME: The validated Config is the single explicit settings value handed to the aggregator

package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/harper/pubfeed/internal/feedwriter"
	"github.com/harper/pubfeed/internal/fetch"
	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/paginate"
)

// Config is the complete settings of one run.
type Config struct {
	API         APIConfig               `yaml:"api"`
	Output      OutputConfig            `yaml:"output"`
	Link        LinkConfig              `yaml:"link"`
	Site        SiteConfig              `yaml:"site"`
	Modes       []string                `yaml:"modes"`
	Collections []models.CollectionSpec `yaml:"collections"`
	LogLevel    string                  `yaml:"log_level"`
}

// APIConfig describes the remote collection API.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Library      string        `yaml:"library"`
	Key          string        `yaml:"key"`
	Version      int           `yaml:"version"`
	Format       string        `yaml:"format"`
	PageSize     int           `yaml:"page_size"`
	Sort         string        `yaml:"sort"`
	Direction    string        `yaml:"direction"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"`
	MaxRetries   *int          `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// OutputConfig describes where and how artifacts are written.
type OutputConfig struct {
	Dir      string  `yaml:"dir"`
	BaseURL  string  `yaml:"base_url"`
	Format   string  `yaml:"format"`
	Language string  `yaml:"language"`
	OPML     *string `yaml:"opml"`
}

// LinkConfig holds the link used when a record has neither DOI nor URL.
type LinkConfig struct {
	Fallback string `yaml:"fallback"`
}

// SiteConfig is the channel metadata shared by every feed.
type SiteConfig struct {
	Link      string `yaml:"link"`
	Author    string `yaml:"author"`
	Generator string `yaml:"generator"`
}

// Load reads path, applies environment overrides and defaults, and validates.
// A missing file is only tolerated for the default path, so a run can be
// configured entirely from the environment.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		data = nil
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data and finishes the configuration like Load.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv(EnvPrefix + "LIBRARY"); v != "" {
		c.API.Library = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Output.BaseURL = v
	}
}

func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Version == 0 {
		c.API.Version = DefaultAPIVersion
	}
	if c.API.Format == "" {
		c.API.Format = DefaultAPIFormat
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}
	if c.API.Sort == "" {
		c.API.Sort = DefaultSort
	}
	if c.API.Direction == "" {
		c.API.Direction = DefaultDirection
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultHTTPTimeout
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.MaxRetries == nil {
		n := DefaultMaxRetries
		c.API.MaxRetries = &n
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Format == "" {
		c.Output.Format = DefaultOutputFormat
	}
	if c.Output.Language == "" {
		c.Output.Language = DefaultLanguage
	}
	if c.Output.OPML == nil {
		f := DefaultOPMLFile
		c.Output.OPML = &f
	}

	if len(c.Modes) == 0 {
		for _, m := range models.AllModes {
			c.Modes = append(c.Modes, string(m))
		}
	}

	if len(c.Collections) == 0 {
		c.Collections = []models.CollectionSpec{{
			Label: c.API.Library,
			Name:  DefaultCollectionName,
			Title: "Publications",
		}}
	}
	for i := range c.Collections {
		col := &c.Collections[i]
		if col.Name == "" {
			col.Name = col.Key
		}
		if col.Label == "" {
			col.Label = col.Name
		}
		if col.Title == "" {
			col.Title = col.Label
		}
	}
}

func (c *Config) validate() error {
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if strings.Trim(c.API.Library, "/") == "" {
		return fmt.Errorf("api.library is required (e.g. groups/5560460)")
	}
	if !strings.HasPrefix(strings.Trim(c.API.Library, "/"), "groups/") && !strings.HasPrefix(strings.Trim(c.API.Library, "/"), "users/") {
		return fmt.Errorf("api.library must start with groups/ or users/, got %q", c.API.Library)
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	switch fetch.Format(c.API.Format) {
	case fetch.FormatJSON, fetch.FormatAtom:
	default:
		return fmt.Errorf("api.format must be %q or %q, got %q", fetch.FormatJSON, fetch.FormatAtom, c.API.Format)
	}
	if c.API.PageSize < 1 || c.API.PageSize > MaxPageSize {
		return fmt.Errorf("api.page_size must be between 1 and %d, got %d", MaxPageSize, c.API.PageSize)
	}
	if c.API.Direction != "asc" && c.API.Direction != "desc" {
		return fmt.Errorf("api.direction must be asc or desc, got %q", c.API.Direction)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be non-negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be non-negative")
	}
	if *c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must be non-negative")
	}
	if _, err := feedwriter.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.BaseURL != "" {
		if u, err := url.Parse(c.Output.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("output.base_url must be an absolute URL, got %q", c.Output.BaseURL)
		}
	}
	for _, m := range c.Modes {
		if _, err := models.ParseDisplayMode(m); err != nil {
			return fmt.Errorf("modes: %w", err)
		}
	}

	names := make(map[string]bool)
	files := make(map[string]bool)
	for i, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collections[%d]: name is required for the top-level collection", i)
		}
		if names[col.Name] {
			return fmt.Errorf("collections[%d]: duplicate name %q", i, col.Name)
		}
		names[col.Name] = true
		for _, m := range c.DisplayModes() {
			f := col.FileName(m)
			if strings.ContainsAny(f, `/\`) {
				return fmt.Errorf("collections[%d]: file %q must not contain a path separator", i, f)
			}
			if files[f] {
				return fmt.Errorf("collections[%d]: file %q is produced twice", i, f)
			}
			files[f] = true
		}
	}
	return nil
}

// DisplayModes returns the configured modes in run order.
func (c *Config) DisplayModes() []models.DisplayMode {
	modes := make([]models.DisplayMode, 0, len(c.Modes))
	for _, m := range c.Modes {
		if mode, err := models.ParseDisplayMode(m); err == nil {
			modes = append(modes, mode)
		}
	}
	return modes
}

// FeedFormat returns the configured output format.
func (c *Config) FeedFormat() feedwriter.Format {
	f, _ := feedwriter.ParseFormat(c.Output.Format)
	return f
}

// OPMLFile returns the index filename, or "" when the index is disabled.
func (c *Config) OPMLFile() string {
	if c.Output.OPML == nil {
		return ""
	}
	return *c.Output.OPML
}

// PublicURL returns the public URL of an artifact, or "" without output.base_url.
func (c *Config) PublicURL(file string) string {
	if c.Output.BaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.Output.BaseURL)
	if err != nil {
		return ""
	}
	u.Path = path.Join("/", u.Path, file)
	return u.String()
}

// Collection finds a configured collection by name or remote key.
func (c *Config) Collection(nameOrKey string) (models.CollectionSpec, bool) {
	for _, col := range c.Collections {
		if col.Name == nameOrKey || (col.Key != "" && col.Key == nameOrKey) {
			return col, true
		}
	}
	return models.CollectionSpec{}, false
}

// NewClient builds the remote API client described by the api section.
func (c *Config) NewClient(logger *log.Logger) *fetch.Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return fetch.NewClient(
		fetch.WithBaseURL(c.API.BaseURL),
		fetch.WithAPIKey(c.API.Key),
		fetch.WithAPIVersion(c.API.Version),
		fetch.WithTimeout(c.API.Timeout),
		fetch.WithRateLimit(c.API.RateLimit),
		fetch.WithRetries(*c.API.MaxRetries, c.API.RetryBackoff),
		fetch.WithLogger(logger),
	)
}

// PaginateOptions returns the per-page request parameters.
func (c *Config) PaginateOptions() paginate.Options {
	return paginate.Options{
		Library:   strings.Trim(c.API.Library, "/"),
		Format:    fetch.Format(c.API.Format),
		Sort:      c.API.Sort,
		Direction: c.API.Direction,
		PageSize:  c.API.PageSize,
	}
}
