// ABOUTME: Centralized configuration defaults for pubfeed
// ABOUTME: Contains the remote API, output and naming defaults applied by the loader

package config

import "time"

// File settings
const (
	DefaultConfigFile = "pubfeed.yaml"
	EnvPrefix         = "PUBFEED_"
)

// Remote API settings
const (
	DefaultAPIBaseURL   = "https://api.zotero.org"
	DefaultAPIVersion   = 3
	DefaultAPIFormat    = "json"
	DefaultPageSize     = 100
	MaxPageSize         = 100
	DefaultSort         = "dateAdded"
	DefaultDirection    = "desc"
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultRateLimit    = 5.0
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = time.Second
)

// Output settings
const (
	DefaultOutputDir      = "public"
	DefaultOutputFormat   = "rss"
	DefaultLanguage       = "de"
	DefaultOPMLFile       = "feeds.opml"
	DefaultCollectionName = "publications"
	DefaultDirPerms       = 0755
	DefaultFilePerms      = 0644
)
