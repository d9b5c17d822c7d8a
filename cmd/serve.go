/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log"
	"log/slog"

	"github.com/rotblauer/skytile/common"
	"github.com/rotblauer/skytile/daemon/webd"
	"github.com/rotblauer/skytile/metrics/influxdb"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview webserver",
	Long: `Serves rendered views of the configured roots over HTTP:
/render.png, /credits, /tiles, /footprints.geojson, /status,
and credits updates on the /socket websocket.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config, err := loadConfig(viper.GetViper())
		if err != nil {
			log.Fatalln(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sc, closeScene, err := openScene(ctx, config)
		if err != nil {
			log.Fatalln(err)
		}
		defer closeScene()

		go func() {
			sig := <-common.Interrupted()
			slog.Info("Serve interrupted", "signal", sig)
			cancel()
		}()

		server := webd.NewWebDaemon(&config.Web, sc)
		if config.Influx.Enabled() {
			exporter := influxdb.NewExporter(&config.Influx)
			defer exporter.Close()
			go exporter.Run(ctx, config.Influx.Interval, func() (sample influxdb.Sample) {
				server.View(func(sc *scene.Scene) {
					sample = influxdb.SampleScene(sc)
				})
				return sample
			})
		}
		if err := server.Run(ctx); err != nil {
			slog.Error("Web daemon", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := params.DefaultWebDaemonConfig()

	pFlags := serveCmd.PersistentFlags()
	pFlags.String("address", defaults.Address, "HTTP address to listen on")
	pFlags.Duration("settle-timeout", defaults.SettleTimeout, "How long a render waits for tiles to load")
	pFlags.String("influx-url", params.DefaultInfluxConfig().URL, "InfluxDB URL to export stats to, empty disables export")
	bindFlags(pFlags, map[string]string{
		"web.address":       "address",
		"web.settleTimeout": "settle-timeout",
		"influx.url":        "influx-url",
	})
}
