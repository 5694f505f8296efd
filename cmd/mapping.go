package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andes-audit/concilia/internal/ingest"
	"github.com/andes-audit/concilia/internal/mapping"
)

var mappingDetectFile string

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Work with column-mapping profiles",
}

var mappingDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect headers in a source file and print a profile template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := ingest.FromFile(mappingDetectFile)
		if err != nil {
			return err
		}

		fmt.Printf("# columnas detectadas en %s:\n", mappingDetectFile)
		for _, h := range table.Headers {
			fmt.Printf("#   %s\n", h)
		}

		guess := mapping.Guess(table.Headers)
		data, err := mapping.Marshal(&mapping.Profile{Softland: guess, Control: guess})
		if err != nil {
			return err
		}
		fmt.Print(string(data))

		if missing := guess.MissingFields(); len(missing) > 0 {
			fmt.Printf("# completar a mano: %v\n", missing)
		}
		return nil
	},
}

func init() {
	mappingDetectCmd.Flags().StringVar(&mappingDetectFile, "file", "", "source file to inspect (required)")
	_ = mappingDetectCmd.MarkFlagRequired("file")
	mappingCmd.AddCommand(mappingDetectCmd)
	rootCmd.AddCommand(mappingCmd)
}
