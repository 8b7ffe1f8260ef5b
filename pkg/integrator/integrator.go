// Package integrator runs a full localization merge: read the localizer file,
// filter it, and rewrite the report behind a backup.
package integrator

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/filter"
	"github.com/ChrisMcGann/LocIntegrator/pkg/luciphor"
	"github.com/ChrisMcGann/LocIntegrator/pkg/report"
	"github.com/ChrisMcGann/LocIntegrator/pkg/txn"
	"github.com/ChrisMcGann/LocIntegrator/pkg/writer/sqlite"
)

// Options configures a run
type Options struct {
	LocalizerPath string
	ReportPath    string
	Thresholds    filter.Config
	RemoveFailing bool
	AuditDB       string            // optional SQLite audit database
	ModDB         *core.ModDatabase // names modifications in the audit database
	Log           logrus.FieldLogger
}

// Summary is the outcome of a run
type Summary struct {
	Entries  int    // localizer entries read
	Skipped  int    // localizer rows without an entry
	Passed   int    // entries within the thresholds
	Modified string // residues the localizer scored, e.g. "STY"
	Backup   string // path of the backup copy of the report
	report.Stats
}

// Run merges the localizer results into the report. Nothing is written
// before the thresholds and the localizer file are validated. A failure
// while rewriting restores the report from its backup and returns the
// rewrite error.
func Run(opts Options) (*Summary, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}

	table, err := luciphor.ReadFile(opts.LocalizerPath, log)
	if err != nil {
		return nil, err
	}
	passed, failed := opts.Thresholds.Apply(table.Entries, log)
	modified := luciphor.ModifiedResidues(table.Entries)

	summary := &Summary{
		Entries:  len(table.Entries),
		Skipped:  table.Skipped,
		Passed:   len(passed),
		Modified: modified.String(),
	}
	log.WithField("residues", summary.Modified).Debug("Modified residues collected")

	cfg := report.Config{
		Passed:        luciphor.ByPsmID(passed),
		Failed:        luciphor.ByPsmID(failed),
		Modified:      modified,
		RemoveFailing: opts.RemoveFailing,
		Extended:      table.ExtendedScores,
		Log:           log,
	}

	var audit *sqlite.Writer
	if opts.AuditDB != "" {
		audit, err = sqlite.NewWriter(opts.AuditDB, opts.ModDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit database: %w", err)
		}
		defer audit.Close()
		cfg.Recorder = audit
	}

	tx, err := txn.Begin(opts.ReportPath, txn.BackupSuffix, log)
	if err != nil {
		return nil, err
	}
	summary.Backup = tx.Backup

	stats, err := rewrite(tx, cfg)
	summary.Stats = stats
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Rollback failed, the report may be incomplete")
		}
		return summary, err
	}

	if audit != nil {
		err := audit.Finalize(sqlite.RunInfo{
			LocalizerPath: opts.LocalizerPath,
			ReportPath:    opts.ReportPath,
			LocalFLR:      opts.Thresholds.LocalFLR,
			GlobalFLR:     opts.Thresholds.GlobalFLR,
			RemoveFailing: opts.RemoveFailing,
			Stats:         stats,
		})
		if err != nil {
			return summary, fmt.Errorf("report written but audit database failed: %w", err)
		}
	}

	logSummary(log, summary)
	return summary, nil
}

func rewrite(tx *txn.Transaction, cfg report.Config) (report.Stats, error) {
	src, err := tx.Source()
	if err != nil {
		return report.Stats{}, err
	}
	defer src.Close()
	return report.Rewrite(src, tx.Writer(), cfg)
}

func logSummary(log logrus.FieldLogger, s *Summary) {
	log.WithFields(logrus.Fields{
		"changed": s.Changed,
		"total":   s.PSMs,
	}).Infof("%d/%d %s PSM entries with some changes in their PTM localizations were incorporated in the report",
		s.Changed, s.PSMs, filter.Percentage(s.Changed, s.PSMs))

	if s.Mismatched > 0 {
		log.Warnf("%d PSMs could not be reconciled with their localizer entry and were left unchanged", s.Mismatched)
	}
	if s.RemovedPSMs > 0 || s.RemovedProteins > 0 {
		log.Infof("%d PSMs and %d proteins removed for failing the threshold(s)", s.RemovedPSMs, s.RemovedProteins)
	}
}
