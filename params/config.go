package params

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config is the whole application configuration.
// Field tags name the keys of the config file.
type Config struct {
	Tile   TileConfig      `mapstructure:"tile"`
	Loader LoaderConfig    `mapstructure:"loader"`
	Fetch  FetchConfig     `mapstructure:"fetch"`
	Web    WebDaemonConfig `mapstructure:"web"`
	Influx InfluxConfig    `mapstructure:"influx"`

	// Roots are the URLs of the root tile descriptions to display.
	Roots []string `mapstructure:"roots"`
}

func DefaultConfig() *Config {
	return &Config{
		Tile:   *DefaultTileConfig(),
		Loader: *DefaultLoaderConfig(),
		Fetch:  *DefaultFetchConfig(),
		Web:    *DefaultWebDaemonConfig(),
		Influx: *DefaultInfluxConfig(),
	}
}

type TileConfig struct {
	// FadeDuration is how long a newly drawn tile takes to reach full opacity.
	FadeDuration time.Duration `mapstructure:"fadeDuration"`

	// FadeCurve names the easing curve of the fade, eg. "linear" or "outQuad".
	FadeCurve string `mapstructure:"fadeCurve"`

	// IdleRelease is how long a tile may go undrawn before its texture is released
	// and its materialized subtiles are destroyed.
	// Zero disables idle release.
	IdleRelease time.Duration `mapstructure:"idleRelease"`
}

func DefaultTileConfig() *TileConfig {
	return &TileConfig{
		FadeDuration: time.Second,
		FadeCurve:    "linear",
		IdleRelease:  2 * time.Minute,
	}
}

type LoaderConfig struct {
	// Workers is the number of concurrent fetch/decode workers.
	Workers int `mapstructure:"workers"`

	// DescriptionCacheSize is the number of raw description documents kept in memory.
	DescriptionCacheSize int `mapstructure:"descriptionCacheSize"`

	// ImageCacheTTL is how long a decoded image stays cached after its last use,
	// so that a released texture can be re-acquired without refetching.
	ImageCacheTTL time.Duration `mapstructure:"imageCacheTTL"`

	// ImageCacheCapacity bounds the number of cached decoded images.
	ImageCacheCapacity uint64 `mapstructure:"imageCacheCapacity"`

	// FailedCacheSize bounds the number of remembered failed URIs.
	FailedCacheSize int `mapstructure:"failedCacheSize"`

	// StorePath is the bbolt file caching description documents on disk.
	// Empty disables the disk cache.
	StorePath string `mapstructure:"storePath"`
}

func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Workers:              runtime.NumCPU(),
		DescriptionCacheSize: 1_000,
		ImageCacheTTL:        5 * time.Minute,
		ImageCacheCapacity:   256,
		FailedCacheSize:      10_000,
		StorePath:            filepath.Join(DatadirRoot, StoreDBName),
	}
}

type FetchConfig struct {
	// HTTPTimeout bounds a whole HTTP request. Zero means no timeout.
	HTTPTimeout time.Duration `mapstructure:"httpTimeout"`

	UserAgent string `mapstructure:"userAgent"`

	// S3Region is used for s3://bucket/key URIs.
	// Credentials come from the usual AWS environment.
	S3Region string `mapstructure:"s3Region"`

	// MaxBytes caps the size of one fetched resource.
	MaxBytes int64 `mapstructure:"maxBytes"`
}

func DefaultFetchConfig() *FetchConfig {
	return &FetchConfig{
		HTTPTimeout: 30 * time.Second,
		UserAgent:   "skytile",
		S3Region:    "us-east-1",
		MaxBytes:    64 << 20,
	}
}
