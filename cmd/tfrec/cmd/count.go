package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freyr-data/tfrecord/pkg/stream"
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count <file>...",
	Short: "Count records in TFRecord files",
	Long: `Count records in one or more TFRecord files.

Example:
  tfrec count train.tfrecord val.tfrecord`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		total := 0
		for _, path := range args {
			n, err := countRecords(path)
			if err != nil {
				fmt.Printf("Error counting %s: %v\n", path, err)
				return
			}
			fmt.Printf("%s: %d records\n", path, n)
			total += n
		}
		if len(args) > 1 {
			fmt.Printf("total: %d records\n", total)
		}
	},
}

func countRecords(path string) (int, error) {
	r, err := stream.OpenReader(path, stream.ReaderConfig{})
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	it := r.Iterator()
	for it.Next() {
		n++
	}
	if err := it.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(countCmd)
}
