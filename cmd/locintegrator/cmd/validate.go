package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LocIntegrator/pkg/luciphor"
	"github.com/ChrisMcGann/LocIntegrator/pkg/report"
)

var (
	// Flags for validate command
	checkLuciphor string
	checkReport   string
)

func init() {
	validateCmd.Flags().StringVar(&checkLuciphor, "luc", "", "Luciphor results file to check")
	validateCmd.Flags().StringVar(&checkReport, "dta", "", "DTASelect results file to check")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate input files without writing anything",
	Long: `Check that a Luciphor results file has the required columns and readable
rows, and that a DTASelect report has the required header columns and
parseable PSM sequences. Nothing is written.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if checkLuciphor == "" && checkReport == "" {
		return fmt.Errorf("nothing to validate, give --luc and/or --dta")
	}

	if checkLuciphor != "" {
		table, err := luciphor.ReadFile(checkLuciphor, logrus.StandardLogger())
		if err != nil {
			return fmt.Errorf("%s: %w", checkLuciphor, err)
		}
		fmt.Printf("%s: %d entries, %d rows skipped\n", checkLuciphor, len(table.Entries), table.Skipped)
	}

	if checkReport != "" {
		f, err := os.Open(checkReport)
		if err != nil {
			return fmt.Errorf("failed to open report: %w", err)
		}
		defer f.Close()

		sum, err := report.Scan(f)
		if err != nil {
			return fmt.Errorf("%s: %w", checkReport, err)
		}
		fmt.Printf("%s: %d proteins, %d PSMs\n", checkReport, sum.Proteins, sum.PSMs)
		for _, p := range sum.Problems {
			logrus.WithFields(logrus.Fields{"line": p.Line, "psm": p.PsmID}).Error(p.Err)
		}
		if len(sum.Problems) > 0 {
			return fmt.Errorf("%d PSM sequences could not be parsed", len(sum.Problems))
		}
	}

	fmt.Println("OK")
	return nil
}
