package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/freyr-data/tfrecord/pkg/example"
	"github.com/freyr-data/tfrecord/pkg/tfrecord"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print a feature summary per record",
	Long: `Inspect a TFRecord file, decoding each record as an example and
printing its features.

Example:
  tfrec inspect train.tfrecord --limit 10`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		r, err := tfrecord.Open(args[0], tfrecord.Config{})
		if err != nil {
			fmt.Printf("Error opening %s: %v\n", args[0], err)
			return
		}
		defer r.Close()

		for i := 0; limit <= 0 || i < limit; i++ {
			offset := r.Offset()
			e, err := r.ReadExample()
			if err == io.EOF {
				return
			}
			if err != nil {
				fmt.Printf("Error reading record %d: %v\n", i, err)
				return
			}

			fmt.Printf("record %d (offset %d):\n", i, offset)
			e.Range(func(name string, v example.Value) bool {
				fmt.Printf("  %-24s %s[%d]\n", name, example.KindOf(v), example.LenOf(v))
				return true
			})
		}
	},
}

func init() {
	inspectCmd.Flags().IntP("limit", "n", 0, "Maximum records to inspect (0 = all)")
	rootCmd.AddCommand(inspectCmd)
}
