// Package influxdb exports render and loader statistics to InfluxDB v2.
package influxdb

import (
	"context"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
)

// Sample is one reading of a running scene.
type Sample struct {
	Time      time.Time
	Frames    scene.FrameStats
	Loader    loader.Stats
	LiveTiles int
	Credits   int
}

// SampleScene reads sc. It must run on the scene's render thread.
func SampleScene(sc *scene.Scene) Sample {
	snap := sc.Credits()
	return Sample{
		Time:      time.Now(),
		Frames:    sc.Stats(),
		Loader:    sc.LoaderStats(),
		LiveTiles: sc.LiveTiles(),
		Credits:   len(snap.Servers) + len(snap.DataSets),
	}
}

type Exporter struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	host   string
	logger *slog.Logger
}

func NewExporter(config *params.InfluxConfig) *Exporter {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	host, _ := os.Hostname()
	return &Exporter{
		client: client,
		write:  client.WriteAPIBlocking(config.Org, config.Bucket),
		host:   host,
		logger: slog.With("d", "influx"),
	}
}

// Export writes one point per measurement for s.
func (e *Exporter) Export(ctx context.Context, s Sample) error {
	frames := influxdb2.NewPointWithMeasurement("skytile_frames").
		SetTime(s.Time).
		AddTag("host", e.host).
		AddField("frames", s.Frames.Frames).
		AddField("mean_ms", s.Frames.Mean).
		AddField("p95_ms", s.Frames.P95).
		AddField("max_ms", s.Frames.Max).
		AddField("live_tiles", s.LiveTiles).
		AddField("credits", s.Credits)

	loads := influxdb2.NewPointWithMeasurement("skytile_loader").
		SetTime(s.Time).
		AddTag("host", e.host).
		AddField("fetched", s.Loader.Fetched).
		AddField("fetched_bytes", s.Loader.FetchedBytes).
		AddField("description_hits", s.Loader.DescriptionHits).
		AddField("store_hits", s.Loader.StoreHits).
		AddField("image_hits", s.Loader.ImageHits).
		AddField("decoded", s.Loader.Decoded).
		AddField("failures", s.Loader.Failures).
		AddField("cached_images", s.Loader.CachedImages).
		AddField("cached_documents", s.Loader.CachedDocuments).
		AddField("queued", s.Loader.Queued)

	return e.write.WritePoint(ctx, frames, loads)
}

// Run exports a sample every interval until ctx is done.
// Failed writes are logged and do not stop the loop.
func (e *Exporter) Run(ctx context.Context, interval time.Duration, sample func() Sample) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Export(ctx, sample()); err != nil {
				e.logger.Warn("Failed to export stats", "error", err)
			}
		}
	}
}

func (e *Exporter) Close() {
	e.client.Close()
}
