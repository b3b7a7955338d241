package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimpact/internal/sheet"
)

var (
	convertOutput       string
	convertNoFormatting bool
	convertSingleSheet  bool
	convertVerbose      bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.json>",
	Short: "Convert a JSON file to an XLSX workbook",
	Long: `Converts any JSON file (array, object or scalar) to a workbook.

A non-empty array gets an Overview sheet, plus a Skills_Details sheet when
records carry a skills list. Everything else lands in a single Data sheet.`,
	Example: `  jobimpact convert results/openai_gpt-5_20240101_120000.json
  jobimpact convert data.json -o output.xlsx
  jobimpact convert data.json --no-formatting
  jobimpact convert data.json --single-sheet`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output XLSX path (default: input path with .xlsx)")
	convertCmd.Flags().BoolVar(&convertNoFormatting, "no-formatting", false, "skip header styling, column sizing and frozen header")
	convertCmd.Flags().BoolVar(&convertSingleSheet, "single-sheet", false, "write everything to one Data sheet")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug || convertVerbose)
	in := args[0]

	if _, err := os.Stat(in); err != nil {
		logger.Error("input file does not exist", "path", in)
		os.Exit(1)
	}

	opts := sheet.DefaultOptions()
	opts.Formatting = !convertNoFormatting
	opts.SingleSheet = convertSingleSheet
	logger.Debug("converting", "input", in, "output", convertOutput, "formatting", opts.Formatting, "single_sheet", opts.SingleSheet)

	out, err := sheet.Convert(in, convertOutput, opts)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}

	info, err := os.Stat(out)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Conversion completed successfully!")
	fmt.Printf("📁 Output file: %s\n", out)
	fmt.Printf("📊 File size: %d bytes\n", info.Size())
	return nil
}
