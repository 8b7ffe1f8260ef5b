// Package sqlite provides an SQLite audit trail of integration runs
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/report"
	"github.com/ChrisMcGann/LocIntegrator/pkg/sequence"
)

const (
	// Date format for RunTable (ISO 8601)
	runDateFormat = "2006-01-02 15:04:05"
	// Mass tolerance (Da) when naming modifications
	nameTolerance = 0.001
)

// RunInfo describes one integration run
type RunInfo struct {
	LocalizerPath string
	ReportPath    string
	LocalFLR      *float64
	GlobalFLR     *float64
	RemoveFailing bool
	Stats         report.Stats
}

// Writer records matched PSMs in an SQLite database. Rows are written inside
// one transaction that Finalize commits.
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	outputPath string
	mods       *core.ModDatabase
	changeStmt *sql.Stmt
	changeID   int
}

// NewWriter opens (or creates) the database at outputPath. mods names the
// modification masses; nil uses the built-in list.
func NewWriter(outputPath string, mods *core.ModDatabase) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if mods == nil {
		mods = core.DefaultModDatabase()
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		mods:       mods,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId INTEGER PRIMARY KEY AUTOINCREMENT,
		CreationDate TEXT,
		LocalizerPath TEXT,
		ReportPath TEXT,
		LocalFLRThreshold DOUBLE,
		GlobalFLRThreshold DOUBLE,
		RemoveFailing BOOL,
		PSMs INTEGER,
		Matched INTEGER,
		Changed INTEGER,
		Mismatched INTEGER,
		RemovedPSMs INTEGER,
		RemovedProteins INTEGER
	);

	CREATE TABLE IF NOT EXISTS PSMChangeTable (
		ChangeId INTEGER PRIMARY KEY AUTOINCREMENT,
		RunId INTEGER REFERENCES RunTable(RunId),
		PsmId TEXT,
		OriginalSequence TEXT,
		ReconciledSequence TEXT,
		Changed BOOL,
		LocalFLR DOUBLE,
		GlobalFLR DOUBLE,
		Pep1Score DOUBLE,
		Pep2Score DOUBLE,
		DeltaScore DOUBLE,
		NeutralMass DOUBLE,
		Modifications TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements opens the transaction and prepares the insert
func (w *Writer) prepareStatements() error {
	var err error

	w.tx, err = w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.changeStmt, err = w.tx.Prepare(`
		INSERT INTO PSMChangeTable (
			PsmId, OriginalSequence, ReconciledSequence, Changed,
			LocalFLR, GlobalFLR, Pep1Score, Pep2Score, DeltaScore,
			NeutralMass, Modifications
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		return fmt.Errorf("failed to prepare change statement: %w", err)
	}

	return nil
}

// Record writes one matched PSM
func (w *Writer) Record(c report.Change) error {
	parsed, err := sequence.Parse(c.Reconciled)
	if err != nil {
		return err
	}

	// Neutral mass of the reconciled peptide, nil when a token has no mass
	var neutralMass interface{}
	known := true
	for _, mod := range parsed.Modifications {
		if mod.DeltaMass == nil {
			known = false
		}
	}
	if known {
		neutralMass = core.RoundFloat(core.CalculateNeutralMass(parsed.Clean, parsed.Modifications), 6)
	}

	labels := w.mods.Describe(parsed.Modifications, nameTolerance)

	_, err = w.changeStmt.Exec(
		c.PsmID,                      // PsmId
		c.Original,                   // OriginalSequence
		c.Reconciled,                 // ReconciledSequence
		c.Changed,                    // Changed
		nullable(c.Entry.LocalFLR),   // LocalFLR
		nullable(c.Entry.GlobalFLR),  // GlobalFLR
		optional(c.Entry.Pep1Score),  // Pep1Score
		optional(c.Entry.Pep2Score),  // Pep2Score
		optional(c.Entry.DeltaScore), // DeltaScore
		neutralMass,                  // NeutralMass
		labels,                       // Modifications
	)
	if err != nil {
		return fmt.Errorf("failed to insert PSM change: %w", err)
	}

	w.changeID++
	return nil
}

// Count returns the number of PSMs recorded so far
func (w *Writer) Count() int {
	return w.changeID
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Finalize writes the run row, links the recorded changes to it, commits and
// closes the database
func (w *Writer) Finalize(run RunInfo) error {
	if w.tx == nil {
		return fmt.Errorf("audit database %s already closed", w.outputPath)
	}

	res, err := w.tx.Exec(`
		INSERT INTO RunTable (
			CreationDate, LocalizerPath, ReportPath, LocalFLRThreshold, GlobalFLRThreshold,
			RemoveFailing, PSMs, Matched, Changed, Mismatched, RemovedPSMs, RemovedProteins
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		time.Now().Format(runDateFormat),
		run.LocalizerPath,
		run.ReportPath,
		optional(run.LocalFLR),
		optional(run.GlobalFLR),
		run.RemoveFailing,
		run.Stats.PSMs,
		run.Stats.Matched,
		run.Stats.Changed,
		run.Stats.Mismatched,
		run.Stats.RemovedPSMs,
		run.Stats.RemovedProteins,
	)
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to read run id: %w", err)
	}
	if _, err := w.tx.Exec(`UPDATE PSMChangeTable SET RunId = ? WHERE RunId IS NULL`, runID); err != nil {
		w.Close()
		return fmt.Errorf("failed to link changes to run: %w", err)
	}

	// Close prepared statements
	if w.changeStmt != nil {
		w.changeStmt.Close()
		w.changeStmt = nil
	}

	if err := w.tx.Commit(); err != nil {
		w.tx = nil
		w.db.Close()
		return fmt.Errorf("failed to commit audit database: %w", err)
	}
	w.tx = nil

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close discards anything not yet finalized and closes the database
func (w *Writer) Close() error {
	if w.changeStmt != nil {
		w.changeStmt.Close()
		w.changeStmt = nil
	}
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}
	return w.db.Close()
}
