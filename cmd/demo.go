package cmd

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/demo"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/roster"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Print fabricated verdicts without a camera or backend",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int("count", 10, "Number of fabricated scans")
	demoCmd.Flags().Int("seed", 0, "Random seed (0 picks one)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	r, err := roster.Default()
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	var rng *rand.Rand
	if seed := mustGetInt(cmd, "seed"); seed != 0 {
		rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	}
	fab := demo.NewFabricator(r, rng)

	count := mustGetInt(cmd, "count")
	var counters facematch.SessionCounters
	for i := range count {
		result := fab.Fabricate()
		counters = counters.Record(result)
		printVerdict(fmt.Sprintf("[%d/%d]", i+1, count), result)
	}

	fmt.Println()
	printCounters(counters)
	return nil
}
