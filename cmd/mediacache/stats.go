package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/veldtmedia/mediacache/internal/errutil"
	"github.com/veldtmedia/mediacache/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats <cache-dir>",
	Short: "Prints an offline summary of a cache directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		var totalItems int
		var totalBytes int64

		for _, sub := range []string{"videos", "images"} {
			dir := filepath.Join(root, sub)
			st := &store.Store{Dir: dir}
			entries, err := st.List()
			if err != nil {
				errutil.LogMsg(err, "Failed to scan directory", "dir", dir)
				continue
			}
			var bytes int64
			for _, e := range entries {
				bytes += e.Size
			}
			totalItems += len(entries)
			totalBytes += bytes
			fmt.Printf("%s:\t%d items, %s\n", sub, len(entries), humanize.Bytes(uint64(bytes)))
		}
		fmt.Printf("total:\t%d items, %s\n", totalItems, humanize.Bytes(uint64(totalBytes)))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
