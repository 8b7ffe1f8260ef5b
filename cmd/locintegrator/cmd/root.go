// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/filter"
	"github.com/ChrisMcGann/LocIntegrator/pkg/integrator"
)

// Default custom modification list, read when present in the working directory
const defaultModsCSV = "unimod_custom.csv"

var (
	// Flags for integrate command
	luciphorFile  string
	reportFile    string
	localFLR      string
	globalFLR     string
	removeFailing bool
	auditDB       string
	modsCSV       string

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "locintegrator",
	Short: "LocIntegrator - PTM localization integration for DTASelect reports",
	Long: `LocIntegrator moves the modification masses of a DTASelect report onto the
residues a PTM localizer (Luciphor) selected, keeping protein groups and
their counts consistent.

The report is rewritten in place; the untouched original is kept beside it
with the suffix "_original".`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(integrateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every relocated PSM")

	// Integrate command flags
	integrateCmd.Flags().StringVar(&luciphorFile, "luc", "", "Full path to Luciphor results file (required)")
	integrateCmd.Flags().StringVar(&reportFile, "dta", "", "Full path to DTASelect results file (required)")
	integrateCmd.Flags().StringVar(&localFLR, "lflr", "", "Local-FLR threshold (real number from 0 to 1.0)")
	integrateCmd.Flags().StringVar(&globalFLR, "gflr", "", "Global-FLR threshold (real number from 0 to 1.0)")
	integrateCmd.Flags().BoolVar(&removeFailing, "rem", false, "Remove the PSMs that don't pass threshold on Luciphor's scores")
	integrateCmd.Flags().StringVar(&auditDB, "audit-db", "", "Record every matched PSM in this SQLite database")
	integrateCmd.Flags().StringVar(&modsCSV, "mods", "", "Modification names CSV for the audit database (default "+defaultModsCSV+" if present)")

	integrateCmd.MarkFlagRequired("luc")
	integrateCmd.MarkFlagRequired("dta")
}

func setupLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Merge Luciphor site localizations into a DTASelect report",
	Long: `Merge Luciphor site localizations into a DTASelect report.

Every PSM of the report found in the Luciphor file gets its modification
masses moved to the residues Luciphor predicted. Columns original_sequence,
globalFLR and localFLR (and pep1score, pep2score, deltaScore when the
Luciphor file has them) are appended to every PSM row.

Examples:
  # Merge all Luciphor results
  locintegrator integrate --luc luciphor_results.tsv --dta DTASelect-filter.txt

  # Keep only localizations with local FLR <= 0.05 and drop the others
  locintegrator integrate --luc luciphor_results.tsv --dta DTASelect-filter.txt --lflr 0.05 --rem`,
	RunE: runIntegrate,
}

func runIntegrate(cmd *cobra.Command, args []string) error {
	luciphorFile = strings.TrimSpace(luciphorFile)
	reportFile = strings.TrimSpace(reportFile)

	if _, err := os.Stat(luciphorFile); os.IsNotExist(err) {
		return fmt.Errorf("luciphor file not found at '%s'", luciphorFile)
	}
	if _, err := os.Stat(reportFile); os.IsNotExist(err) {
		return fmt.Errorf("DTASelect file not found at '%s'", reportFile)
	}

	thresholds, err := parseThresholds()
	if err != nil {
		return err
	}

	modDB, err := loadModDatabase()
	if err != nil {
		return err
	}

	log := logrus.StandardLogger()
	summary, err := integrator.Run(integrator.Options{
		LocalizerPath: luciphorFile,
		ReportPath:    reportFile,
		Thresholds:    thresholds,
		RemoveFailing: removeFailing,
		AuditDB:       auditDB,
		ModDB:         modDB,
		Log:           log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nIntegration complete!\n")
	fmt.Printf("PSMs changed: %d/%d\n", summary.Changed, summary.PSMs)
	if removeFailing {
		fmt.Printf("Removed: %d PSMs, %d proteins\n", summary.RemovedPSMs, summary.RemovedProteins)
	}
	fmt.Printf("Backup: %s\n", summary.Backup)
	return nil
}

func parseThresholds() (filter.Config, error) {
	var cfg filter.Config
	var err error
	if cfg.LocalFLR, err = filter.ParseThreshold("Local FLR", localFLR); err != nil {
		return cfg, err
	}
	cfg.GlobalFLR, err = filter.ParseThreshold("Global FLR", globalFLR)
	return cfg, err
}

// loadModDatabase returns the built-in modification names plus those of the
// --mods file, or of unimod_custom.csv when it exists.
func loadModDatabase() (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()

	path := modsCSV
	if path == "" {
		if _, err := os.Stat(defaultModsCSV); err != nil {
			return modDB, nil
		}
		path = defaultModsCSV
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modification list: %w", err)
	}
	defer f.Close()

	if err := modDB.LoadFromCSV(f); err != nil {
		if modsCSV == "" {
			logrus.Warnf("Failed to load %s: %v", defaultModsCSV, err)
			return core.DefaultModDatabase(), nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	logrus.WithField("file", path).Debugf("%d modification names loaded", modDB.Len())
	return modDB, nil
}
