package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List the persons of interest",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := roster.Default()
		if err != nil {
			return fmt.Errorf("loading roster: %w", err)
		}

		fmt.Printf("Persons of interest (%d):\n\n", r.Len())
		for _, p := range r.All() {
			colorCyan.Printf("%d. %s\n", p.ID, p.FullName)
			fmt.Printf("   National ID: %s\n", p.NationalID)
			fmt.Printf("   Offense:     %s\n", p.Offense)
			fmt.Printf("   Case file:   %s\n", p.CaseFile)
			fmt.Printf("   Court:       %s\n", p.Court)
			fmt.Printf("   Issued on:   %s\n\n", p.IssuedOn)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}
