package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mediacache",
	Short: "Disk-backed media cache fronting a remote asset bucket",
	Long: `mediacache keeps local copies of the video and image assets referenced by
the site's content catalog and serves them to the media proxy endpoint with
range support, falling back to the remote bucket when the cache cannot.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("MEDIACACHE")
	viper.AutomaticEnv()
}
