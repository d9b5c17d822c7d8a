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
	"errors"
	"image/color"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/rotblauer/skytile/credits"
	"github.com/rotblauer/skytile/paint"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/tile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type renderOptions struct {
	RA, Dec, FOV   float64
	Width, Height  int
	Resolution     float64
	LuminanceLimit float64
	Debug          bool
	Timeout        time.Duration
}

var optRender renderOptions
var optRenderOut string

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one view of the sky to a PNG",
	Long: `Loads the tiles a view needs, waiting up to --timeout for them,
and writes the fully faded-in frame as a PNG (to stdout with --out -).`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config, err := loadConfig(viper.GetViper())
		if err != nil {
			log.Fatalln(err)
		}

		var w io.Writer = os.Stdout
		if optRenderOut != "-" {
			f, err := os.Create(optRenderOut)
			if err != nil {
				log.Fatalln(err)
			}
			defer f.Close()
			w = f
		}

		snap, err := renderPNG(context.Background(), config, optRender, w)
		if err != nil {
			log.Fatalln(err)
		}
		slog.Info("Rendered", "out", optRenderOut, "credits", snap.Short())
	},
}

// renderPNG settles a scene on the view described by opts and encodes
// one still frame to w. It returns the frame's credits.
func renderPNG(ctx context.Context, config *params.Config, opts renderOptions, w io.Writer) (credits.Snapshot, error) {
	proj, err := sphere.NewProjection(opts.RA, opts.Dec, opts.FOV, opts.Width, opts.Height)
	if err != nil {
		return credits.Snapshot{}, err
	}
	sc, closeScene, err := openScene(ctx, config)
	if err != nil {
		return credits.Snapshot{}, err
	}
	defer closeScene()

	vp := &tile.Viewport{
		Footprint:      proj.Footprint(),
		Resolution:     proj.Resolution(),
		LuminanceLimit: opts.LuminanceLimit,
		Painter:        paint.Discard,
	}
	if opts.Resolution > 0 {
		vp.Resolution = opts.Resolution
	}
	r, err := sc.Settle(ctx, vp, opts.Timeout, config.Web.FrameInterval)
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Render did not settle, drawing what loaded", "inflight", r.InFlight)
	} else if err != nil {
		return credits.Snapshot{}, err
	}

	canvas := paint.NewCanvas(proj)
	canvas.Clear(color.Black)
	vp.Painter = canvas
	if opts.Debug {
		vp.Debug = canvas
	}
	r = sc.Still(vp)
	slog.Debug("Frame", "drawn", r.Drawn, "stats", sc.Stats(), "loader", sc.LoaderStats())
	if err := png.Encode(w, canvas.Image()); err != nil {
		return credits.Snapshot{}, err
	}
	return r.Credits, nil
}

func init() {
	rootCmd.AddCommand(renderCmd)

	defaults := params.DefaultWebDaemonConfig()

	flags := renderCmd.Flags()
	flags.Float64Var(&optRender.RA, "ra", 0, "Right ascension of the view center, degrees")
	flags.Float64Var(&optRender.Dec, "dec", 0, "Declination of the view center, degrees")
	flags.Float64Var(&optRender.FOV, "fov", 60, "Horizontal field of view, degrees")
	flags.IntVar(&optRender.Width, "width", defaults.RenderWidth, "Frame width, pixels")
	flags.IntVar(&optRender.Height, "height", defaults.RenderHeight, "Frame height, pixels")
	flags.Float64Var(&optRender.Resolution, "res", 0, "Required resolution, degrees per pixel (default: the frame's)")
	flags.Float64Var(&optRender.LuminanceLimit, "lum", 0, "Cull tiles fainter than this luminance")
	flags.BoolVar(&optRender.Debug, "debug", false, "Label every tile with its resolution")
	flags.DurationVar(&optRender.Timeout, "timeout", defaults.SettleTimeout, "How long to wait for tiles to load")
	flags.StringVarP(&optRenderOut, "out", "o", "sky.png", "Output file, - for stdout")
}
