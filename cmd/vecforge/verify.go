package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vecforge/vecforge/cagra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify FILE...",
	Short: "Verify the integrity of serialized index files",
	Long: `Verify checks the header, payload bounds and checksum of each file
without decompressing the payload.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if _, err := cagra.VerifyFile(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("%s: OK\n", path)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print the header of a serialized index file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := cagra.ReadHeader(args[0])
		if err != nil {
			return err
		}

		family := "float"
		if h.Family == cagra.FamilyBinary {
			family = "binary"
		}

		fmt.Printf("family:          %s\n", family)
		fmt.Printf("vectors:         %d\n", h.Count)
		fmt.Printf("dim:             %d\n", h.Dim)
		fmt.Printf("ef_search:       %d\n", h.EFSearch)
		fmt.Printf("ef_construction: %d\n", h.EFConstruction)
		fmt.Printf("compression:     %s\n", cagra.Compression(h.Compression))
		fmt.Printf("base_level_only: %t\n", h.BaseLevelOnly())
		return nil
	},
}
