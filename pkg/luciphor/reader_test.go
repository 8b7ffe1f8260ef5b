package luciphor

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func f64(v float64) *float64 { return &v }

func TestReadAllBasic(t *testing.T) {
	input := "specId\tpeptide\tpredictedPep1\tglobalFLR\tlocalFLR\n" +
		"spec1\tQCTNVTNNITDDMRGELK\tQCTnVTnNITDDMRGELK\t0.02\t0.01\n" +
		"spec2\tPEPSTIDE\tPEPsTIDE\t0.5\t0.2\n"

	table, err := ReadAll(strings.NewReader(input), quietLogger())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := []*Entry{
		{PsmID: "spec1", PredictedSequence: "QCTnVTnNITDDMRGELK", LocalFLR: 0.01, GlobalFLR: 0.02},
		{PsmID: "spec2", PredictedSequence: "PEPsTIDE", LocalFLR: 0.2, GlobalFLR: 0.5},
	}
	if diff := cmp.Diff(want, table.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if table.ExtendedScores {
		t.Error("ExtendedScores = true without score columns")
	}
	if table.Skipped != 0 {
		t.Errorf("Skipped = %d", table.Skipped)
	}
}

func TestReadAllExtendedScores(t *testing.T) {
	input := "specId\tpredictedPep1\tpredictedPep2\tdeltaScore\tpep1score\tpep2score\tglobalFLR\tlocalFLR\n" +
		"spec1\tPEPsTIDE\tPEPStIDE\t4.5\t20.1\t15.6\t0.01\t0.005\n" +
		"spec2\tPEPStIDE\tPEPsTIDE\t\t18\t\t0.02\t0.01\n"

	table, err := ReadAll(strings.NewReader(input), quietLogger())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !table.ExtendedScores {
		t.Fatal("ExtendedScores = false")
	}

	want := []*Entry{
		{PsmID: "spec1", PredictedSequence: "PEPsTIDE", LocalFLR: 0.005, GlobalFLR: 0.01, Pep1Score: f64(20.1), Pep2Score: f64(15.6), DeltaScore: f64(4.5)},
		{PsmID: "spec2", PredictedSequence: "PEPStIDE", LocalFLR: 0.01, GlobalFLR: 0.02, Pep1Score: f64(18)},
	}
	if diff := cmp.Diff(want, table.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAllSkipsIncompleteRows(t *testing.T) {
	input := "specId\tpredictedPep1\tlocalFLR\tglobalFLR\n" +
		"spec1\tPEPsTIDE\t0.01\t0.02\n" +
		"\tPEPsTIDE\t0.01\t0.02\n" +
		"spec3\t\t0.01\t0.02\n" +
		"spec4\tPEPsTIDE\tabc\t0.02\n" +
		"spec5\tPEPsTIDE\n"

	table, err := ReadAll(strings.NewReader(input), quietLogger())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(table.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(table.Entries))
	}
	if table.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", table.Skipped)
	}
	last := table.Entries[1]
	if last.PsmID != "spec5" || !math.IsNaN(last.LocalFLR) || !math.IsNaN(last.GlobalFLR) {
		t.Errorf("short row should give NaN FLRs, got %+v", last)
	}
}

func TestReadAllMissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no identifier", "peptide\tpredictedPep1\tlocalFLR\n"},
		{"no prediction", "specId\tpeptide\tlocalFLR\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(strings.NewReader(tt.input), quietLogger())
			if !errors.Is(err, core.ErrMissingColumn) {
				t.Errorf("ReadAll() error = %v, want ErrMissingColumn", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "luciphor_results.tsv")
	content := "specId\tpredictedPep1\tlocalFLR\tglobalFLR\r\nspec1\tPEPsTIDE\t0.01\t0.02\r\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := ReadFile(path, quietLogger())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := []*Entry{{PsmID: "spec1", PredictedSequence: "PEPsTIDE", LocalFLR: 0.01, GlobalFLR: 0.02}}
	if diff := cmp.Diff(want, table.Entries, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.tsv"), quietLogger()); !errors.Is(err, core.ErrIO) {
		t.Errorf("ReadFile() on missing file error = %v, want ErrIO", err)
	}
}

func TestByPsmID(t *testing.T) {
	entries := []*Entry{
		{PsmID: "a", PredictedSequence: "PEPTIDE"},
		{PsmID: "b", PredictedSequence: "PEPsIDE"},
		{PsmID: "a", PredictedSequence: "PEPtIDE"},
	}
	m := ByPsmID(entries)
	if len(m) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(m))
	}
	if m["a"].PredictedSequence != "PEPtIDE" {
		t.Errorf("last entry should win, got %q", m["a"].PredictedSequence)
	}
}
