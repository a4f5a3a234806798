package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/freyr-data/tfrecord/pkg/stream"
)

// splitCmd represents the split command
var splitCmd = &cobra.Command{
	Use:   "split <file>",
	Short: "Re-shard a TFRecord file into N output files",
	Long: `Split a TFRecord file into N shards, assigning records round-robin.
Shard names carry a unique suffix so repeated splits never collide.

Example:
  tfrec split train.tfrecord --shards 4 --output ./shards`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shards, _ := cmd.Flags().GetInt("shards")
		output, _ := cmd.Flags().GetString("output")
		if shards < 1 {
			return fmt.Errorf("--shards must be at least 1, have %d", shards)
		}

		reader, err := stream.OpenReader(args[0], stream.ReaderConfig{})
		if err != nil {
			return err
		}
		defer reader.Close()

		base := filepath.Base(args[0])
		run := ksuid.New().String()

		writers := make([]*stream.Writer, shards)
		paths := make([]string, shards)
		for i := range writers {
			paths[i] = filepath.Join(output, fmt.Sprintf("%s-%s-%04d-of-%04d", base, run, i, shards))
			w, err := stream.OpenWriter(paths[i], stream.WriterConfig{})
			if err != nil {
				return err
			}
			defer w.Close()
			writers[i] = w
		}

		counts := make([]int, shards)
		for i := 0; ; i++ {
			payload, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			shard := i % shards
			if _, err := writers[shard].Write(payload); err != nil {
				return err
			}
			counts[shard]++
		}

		for i, w := range writers {
			if err := w.Sync(); err != nil {
				return err
			}
			fmt.Printf("%s: %d records\n", paths[i], counts[i])
		}
		return nil
	},
}

func init() {
	splitCmd.Flags().IntP("shards", "s", 2, "Number of output shards")
	splitCmd.Flags().StringP("output", "o", ".", "Output directory")
	rootCmd.AddCommand(splitCmd)
}
