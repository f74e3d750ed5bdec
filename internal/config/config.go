// Package config holds the operator-facing configuration surface, backed by
// viper. Defaults are registered in SetDefaults; values come from the config
// file, environment bindings and CLI flag overrides.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults for every tunable. All of them are overridable via config file.
const (
	DefaultProviderDelay    = 100 * time.Millisecond
	DefaultProviderInFlight = 2
	DefaultConcurrency      = 2
	DefaultBatchSize        = 25
	DefaultRequestTimeout   = 10 * time.Second
	DefaultCoversMaxWidth   = 1000
)

// SetDefaults registers default values for every configuration key.
func SetDefaults() {
	viper.SetDefault("tmdb.baseurl", "https://api.themoviedb.org/3")
	viper.SetDefault("tmdb.imagebaseurl", "https://image.tmdb.org/t/p/w500")
	viper.SetDefault("lddb.baseurl", "https://www.lddb.com")
	viper.SetDefault("providers.delay", DefaultProviderDelay)
	viper.SetDefault("providers.maxinflight", DefaultProviderInFlight)
	viper.SetDefault("batch.concurrency", DefaultConcurrency)
	viper.SetDefault("batch.size", DefaultBatchSize)
	viper.SetDefault("request.timeout", DefaultRequestTimeout)
	viper.SetDefault("covers.dir", "./covers")
	viper.SetDefault("covers.maxwidth", DefaultCoversMaxWidth)
	viper.SetDefault("database", "./catalog.db")
}

// TMDBAPIKey returns the TMDB API key (config key tmdb.apikey, env
// TMDB_API_KEY). Empty means unset; callers decide whether that is fatal.
func TMDBAPIKey() string { return viper.GetString("tmdb.apikey") }

// TMDBBaseURL returns the TMDB API base URL.
func TMDBBaseURL() string { return viper.GetString("tmdb.baseurl") }

// TMDBImageBaseURL returns the base URL posters are resolved against.
func TMDBImageBaseURL() string { return viper.GetString("tmdb.imagebaseurl") }

// LDDBBaseURL returns the LDDB base URL.
func LDDBBaseURL() string { return viper.GetString("lddb.baseurl") }

// ProviderDelay returns the minimum spacing between requests to one provider.
func ProviderDelay() time.Duration { return viper.GetDuration("providers.delay") }

// ProviderMaxInFlight returns the per-provider concurrent request cap.
func ProviderMaxInFlight() int { return viper.GetInt("providers.maxinflight") }

// BatchConcurrency returns the worker pool size for batch runs.
func BatchConcurrency() int { return viper.GetInt("batch.concurrency") }

// BatchSize returns the default maximum number of entries per run.
func BatchSize() int { return viper.GetInt("batch.size") }

// RequestTimeout returns the per-request timeout for provider calls.
func RequestTimeout() time.Duration { return viper.GetDuration("request.timeout") }

// CoversDir returns the directory poster downloads are stored in.
func CoversDir() string { return viper.GetString("covers.dir") }

// CoversMaxWidth returns the stored poster width cap.
func CoversMaxWidth() int { return viper.GetInt("covers.maxwidth") }

// DatabasePath returns the catalog sqlite database path.
func DatabasePath() string { return viper.GetString("database") }
