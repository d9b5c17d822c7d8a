package params

import (
	"os"
	"time"
)

// InfluxConfig configures periodic export of render and loader statistics
// to an InfluxDB v2 bucket. An empty URL disables export.
type InfluxConfig struct {
	URL      string        `mapstructure:"url"`
	Token    string        `mapstructure:"token"`
	Org      string        `mapstructure:"org"`
	Bucket   string        `mapstructure:"bucket"`
	Interval time.Duration `mapstructure:"interval"`
}

func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		URL:      os.Getenv("INFLUXDB_URL"),
		Token:    os.Getenv("INFLUXDB_TOKEN"),
		Org:      os.Getenv("INFLUXDB_ORG"),
		Bucket:   os.Getenv("INFLUXDB_BUCKET"),
		Interval: time.Minute,
	}
}

func (c *InfluxConfig) Enabled() bool {
	return c != nil && c.URL != "" && c.Interval > 0
}
