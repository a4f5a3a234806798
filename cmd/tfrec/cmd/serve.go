/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freyr-data/tfrecord/pkg/api"
	"github.com/freyr-data/tfrecord/pkg/config"
	"github.com/freyr-data/tfrecord/pkg/dataset"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve <file>...",
	Short: "Serve TFRecord files over a REST API",
	Long: `Index the given TFRecord files and serve them over HTTP, with record
payloads, feature summaries and Prometheus metrics.

Examples:
  tfrec serve train.tfrecord --port 8080
  tfrec serve shards/*.tfrecord --config ./tfrec.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg := config.DefaultConfig()
		if configPath != "" {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if noIntegrity, _ := cmd.Flags().GetBool("no-integrity"); noIntegrity {
			cfg.Dataset.CheckIntegrity = false
		}

		ds, err := dataset.Open(cmd.Context(), dataset.Config{
			CheckIntegrity: cfg.Dataset.CheckIntegrity,
			MaxOpenFiles:   cfg.Dataset.MaxOpenFiles,
			MaxWorkers:     cfg.Dataset.MaxWorkers,
			MaxRecordSize:  cfg.Dataset.MaxRecordSize,
		}, args...)
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer ds.Close()

		fmt.Printf("Indexed %d records from %d files\n", ds.NumRecords(), len(args))
		return api.StartServer(ds, api.ServerConfig{Port: cfg.Port, Bind: cfg.Bind})
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringP("bind", "b", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().Bool("no-integrity", false, "Skip checksum verification while indexing and serving")
	rootCmd.AddCommand(serveCmd)
}
