package cmd

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LocIntegrator/pkg/luciphor"
)

var summarizeFile string

func init() {
	summarizeCmd.Flags().StringVar(&summarizeFile, "luc", "", "Luciphor results file (required)")
	summarizeCmd.MarkFlagRequired("luc")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize Luciphor results",
	Long:  `Print entry counts, localized residues and FLR statistics (mean, standard deviation, median) of a Luciphor results file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := luciphor.ReadFile(summarizeFile, logrus.StandardLogger())
		if err != nil {
			return err
		}
		printDescription(luciphor.Describe(table))
		return nil
	},
}

func printDescription(d luciphor.Description) {
	fmt.Printf("Entries: %d\n", d.Entries)
	if d.Skipped > 0 {
		fmt.Printf("Skipped rows: %d\n", d.Skipped)
	}
	fmt.Printf("Extended scores: %v\n", d.ExtendedScores)
	fmt.Printf("Modified residues: %s\n", d.Modified)

	residues := make([]rune, 0, len(d.Sites))
	for r := range d.Sites {
		residues = append(residues, r)
	}
	sort.Slice(residues, func(i, j int) bool { return residues[i] < residues[j] })
	for _, r := range residues {
		fmt.Printf("  %c: %d sites\n", r, d.Sites[r])
	}

	printFLR("Local FLR", d.Local)
	printFLR("Global FLR", d.Global)
}

func printFLR(name string, s luciphor.FLRStats) {
	fmt.Printf("%s: n=%d", name, s.N)
	if s.Missing > 0 {
		fmt.Printf(" (missing %d)", s.Missing)
	}
	if s.N == 0 {
		fmt.Println()
		return
	}
	fmt.Printf(" mean=%.4f", s.Mean)
	if !math.IsNaN(s.StdDev) {
		fmt.Printf(" sd=%.4f", s.StdDev)
	}
	fmt.Printf(" median=%.4f min=%.4f max=%.4f\n", s.Median, s.Min, s.Max)
}
