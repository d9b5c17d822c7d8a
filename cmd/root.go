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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
	"github.com/rotblauer/skytile/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var errNoRoots = errors.New("no root tile descriptions configured (use --root or the roots config key)")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skytile",
	Short: "Render hierarchical sky image tiles",
	Long: `skytile loads trees of sky image tiles, each covering a region of
the celestial sphere at some resolution, and draws the tiles a view needs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is %s)",
		filepath.Join(params.DatadirRoot, params.ConfigFileName+".yaml")))
	pFlags.Int("verbosity", int(slog.LevelInfo), "Log level (-4 debug, 0 info, 4 warn, 8 error)")
	pFlags.StringSlice("root", nil, "Root tile description URL or path (repeatable)")
	pFlags.String("store", params.DefaultLoaderConfig().StorePath, "Description cache database, empty disables it")

	bindFlags(pFlags, map[string]string{
		"verbosity":        "verbosity",
		"roots":            "root",
		"loader.storePath": "store",
	})
}

// bindFlags binds config keys to the named flags of fs,
// so a flag given on the command line overrides the config file.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := readConfigFile(viper.GetViper(), cfgFile); err != nil {
		slog.Warn("Failed to read config file", "error", err)
	}
}

// readConfigFile points v at path, or the default config file
// under the data directory, and reads it.
// A missing default file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(params.DatadirRoot)
		v.SetConfigName(params.ConfigFileName)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("SKYTILE")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("Using config file", "file", v.ConfigFileUsed())
	return nil
}

// loadConfig overlays v's settings on the defaults.
func loadConfig(v *viper.Viper) (*params.Config, error) {
	c := params.DefaultConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	slog.SetLogLoggerLevel(slog.Level(viper.GetInt("verbosity")))
}

// openScene opens the description store, if configured, and a scene
// showing every configured root. closeFn closes both.
func openScene(ctx context.Context, c *params.Config) (sc *scene.Scene, closeFn func(), err error) {
	if len(c.Roots) == 0 {
		return nil, nil, errNoRoots
	}
	var st *store.Store
	if c.Loader.StorePath != "" {
		st, err = store.Open(c.Loader.StorePath)
		if err != nil {
			return nil, nil, err
		}
	}
	sc, err = scene.New(ctx, c, fetch.NewMulti(&c.Fetch), st)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	for _, r := range c.Roots {
		sc.AddRoot(r)
	}
	closeFn = func() {
		if err := sc.Close(); err != nil {
			slog.Warn("Failed to close scene", "error", err)
		}
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}
	return sc, closeFn, nil
}
