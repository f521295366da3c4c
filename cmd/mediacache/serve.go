package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veldtmedia/mediacache/internal/app"
	"github.com/veldtmedia/mediacache/internal/errutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the media cache server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := app.Config{
			Port:          viper.GetInt("port"),
			CacheDir:      viper.GetString("cache-dir"),
			BucketURL:     viper.GetString("bucket-url"),
			RemoteBackend: viper.GetString("remote-backend"),
			S3Bucket:      viper.GetString("s3-bucket"),
			CatalogDB:     viper.GetString("catalog-db"),
			Critical:      viper.GetStringSlice("critical-assets"),
			MaxItems:      viper.GetInt("max-items"),
			PruneTo:       viper.GetInt("prune-to"),
			SweepInterval: viper.GetDuration("sweep-interval"),
			MaxAge:        viper.GetDuration("max-age"),
			MaxBytes:      viper.GetInt64("max-bytes"),
			FetchTimeout:  viper.GetDuration("fetch-timeout"),
		}

		server, cleanup, err := app.NewServer(cfg)
		if err != nil {
			errutil.ReportError(err, "Failed to start server")
			os.Exit(1)
		}
		defer cleanup()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errutil.ReportError(err, "Server failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("cache-dir", "./media-cache", "Root directory for the videos/ and images/ cache")
	serveCmd.Flags().String("bucket-url", "", "Base URL of the remote asset bucket (http backend)")
	serveCmd.Flags().String("remote-backend", "http", "Remote store backend (http or s3)")
	serveCmd.Flags().String("s3-bucket", "", "S3 bucket name (s3 backend)")
	serveCmd.Flags().String("catalog-db", "", "Path to the content catalog sqlite database (empty serves critical assets only)")
	serveCmd.Flags().StringSlice("critical-assets", nil, "Video filenames preloaded at startup and exempt from reconciliation")
	serveCmd.Flags().Int("max-items", 50, "Per-kind item ceiling that triggers pressure relief")
	serveCmd.Flags().Int("prune-to", 40, "Per-kind item floor pressure relief prunes down to")
	serveCmd.Flags().Duration("sweep-interval", 0, "Interval for the age/size sweep (0 disables it)")
	serveCmd.Flags().Duration("max-age", 30*24*time.Hour, "Sweep: entries older than this are removed")
	serveCmd.Flags().Int64("max-bytes", 10*1024*1024*1024, "Sweep: total-size ceiling in bytes")
	serveCmd.Flags().Duration("fetch-timeout", 30*time.Second, "Timeout for remote fetches")

	for _, flag := range []string{
		"port", "cache-dir", "bucket-url", "remote-backend", "s3-bucket",
		"catalog-db", "critical-assets", "max-items", "prune-to",
		"sweep-interval", "max-age", "max-bytes", "fetch-timeout",
	} {
		_ = viper.BindPFlag(flag, serveCmd.Flags().Lookup(flag))
	}
}
