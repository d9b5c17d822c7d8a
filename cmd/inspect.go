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
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rotblauer/skytile/fetch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
)

var errNotDescription = errors.New("not a tile description")

var optInspectPath string
var optInspectDepth int

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect URI",
	Short: "Print a tile description, or its subtile tree",
	Long: `Fetches one tile description. With --path, prints the value at that
gjson path (eg. "serverCredits.shortCredits" or "subTiles.#").
Otherwise prints a summary of the tile and its subtiles, following
subtile URLs down to --depth.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		config, err := loadConfig(viper.GetViper())
		if err != nil {
			log.Fatalln(err)
		}
		fetcher := fetch.NewMulti(&config.Fetch)
		ctx := context.Background()

		if optInspectPath != "" {
			out, err := inspectPath(ctx, fetcher, args[0], optInspectPath)
			if err != nil {
				log.Fatalln(err)
			}
			fmt.Println(out)
			return
		}
		if err := describeTree(ctx, fetcher, args[0], optInspectDepth, os.Stdout); err != nil {
			log.Fatalln(err)
		}
	},
}

func fetchDescription(ctx context.Context, f fetch.Fetcher, uri string) (gjson.Result, error) {
	b, err := f.Fetch(ctx, uri)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, fmt.Errorf("%w: %s: invalid JSON", errNotDescription, uri)
	}
	r := gjson.ParseBytes(b)
	if !r.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: %s: not an object", errNotDescription, uri)
	}
	return r, nil
}

// inspectPath returns the value at path in the description at uri.
// Objects and arrays are pretty printed.
func inspectPath(ctx context.Context, f fetch.Fetcher, uri, path string) (string, error) {
	r, err := fetchDescription(ctx, f, uri)
	if err != nil {
		return "", err
	}
	v := r.Get(path)
	if !v.Exists() {
		return "", fmt.Errorf("%s: no value at %q", uri, path)
	}
	if v.IsObject() || v.IsArray() {
		return strings.TrimSpace(gjson.Get(v.Raw, "@pretty").String()), nil
	}
	return v.String(), nil
}

// describeTree writes one indented line per tile, following subtile
// URLs until depth levels below the root. A subtile that fails to load
// is reported in place; only the root failing is an error.
func describeTree(ctx context.Context, f fetch.Fetcher, uri string, depth int, w io.Writer) error {
	r, err := fetchDescription(ctx, f, uri)
	if err != nil {
		return err
	}
	describeNode(ctx, f, r, uri, uri, 0, depth, w)
	return nil
}

func describeNode(ctx context.Context, f fetch.Fetcher, r gjson.Result, label, base string, level, depth int, w io.Writer) {
	indent := strings.Repeat("  ", level)
	line := fmt.Sprintf("%s%s minResolution=%g regions=%d", indent, label,
		r.Get("minResolution").Float(), r.Get("worldCoords.#").Int())
	if r.Get("noTexture").Bool() {
		line += " noTexture"
	} else if img := r.Get("imageURI").String(); img != "" {
		line += " image=" + fetch.Resolve(base, img)
	}
	if lum := r.Get("luminance"); lum.Exists() && lum.Float() >= 0 {
		line += fmt.Sprintf(" luminance=%g", lum.Float())
	}
	subs := r.Get("subTiles")
	if n := subs.Get("#").Int(); n > 0 {
		line += fmt.Sprintf(" subTiles=%d", n)
	}
	fmt.Fprintln(w, line)
	if level >= depth {
		return
	}

	i := 0
	subs.ForEach(func(_, sub gjson.Result) bool {
		switch {
		case sub.Type == gjson.String:
			child := fetch.Resolve(base, sub.String())
			cr, err := fetchDescription(ctx, f, child)
			if err != nil {
				fmt.Fprintf(w, "%s  %s error=%q\n", indent, child, err.Error())
				break
			}
			describeNode(ctx, f, cr, child, child, level+1, depth, w)
		case sub.IsObject():
			describeNode(ctx, f, sub, fmt.Sprintf("[%d]", i), base, level+1, depth, w)
		default:
			fmt.Fprintf(w, "%s  [%d] error=%q\n", indent, i, "unsupported subtile "+sub.Type.String())
		}
		i++
		return true
	})
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&optInspectPath, "path", "", "gjson path to print, eg. dataSetCredits")
	inspectCmd.Flags().IntVar(&optInspectDepth, "depth", 1, "Subtile levels to follow")
}
