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
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/skytile/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optStoreDropAll bool

// storeCmd represents the store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the on-disk description cache",
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached description documents",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		st := mustOpenStore()
		defer st.Close()
		if _, err := listStore(st, os.Stdout); err != nil {
			log.Fatalln(err)
		}
	},
}

var storeDropCmd = &cobra.Command{
	Use:   "drop [URI...]",
	Short: "Remove cached description documents, so they are fetched again",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		st := mustOpenStore()
		defer st.Close()
		n, err := dropStore(st, args, optStoreDropAll)
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("dropped %d\n", n)
	},
}

func mustOpenStore() *store.Store {
	config, err := loadConfig(viper.GetViper())
	if err != nil {
		log.Fatalln(err)
	}
	if config.Loader.StorePath == "" {
		log.Fatalln("no store configured")
	}
	st, err := store.Open(config.Loader.StorePath)
	if err != nil {
		log.Fatalln(err)
	}
	return st
}

// listStore writes one line per document and returns the number listed.
func listStore(st *store.Store, w io.Writer) (int, error) {
	n := 0
	var total uint64
	err := st.ForEach(func(uri string, doc []byte) error {
		n++
		total += uint64(len(doc))
		_, err := fmt.Fprintf(w, "%s\t%s\n", humanize.Bytes(uint64(len(doc))), uri)
		return err
	})
	if err != nil {
		return n, err
	}
	_, err = fmt.Fprintf(w, "%d documents, %s\n", n, humanize.Bytes(total))
	return n, err
}

// dropStore deletes the given URIs, or every document if all is set.
func dropStore(st *store.Store, uris []string, all bool) (int, error) {
	if all {
		uris = uris[:0]
		err := st.ForEach(func(uri string, _ []byte) error {
			uris = append(uris, uri)
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	for i, uri := range uris {
		if err := st.Delete(uri); err != nil {
			return i, err
		}
	}
	return len(uris), nil
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDropCmd)

	storeDropCmd.Flags().BoolVar(&optStoreDropAll, "all", false, "Drop every document")
}
