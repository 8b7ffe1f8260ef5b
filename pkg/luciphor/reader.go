package luciphor

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

// Column names of the Luciphor results file
const (
	ColSpecID     = "specId"
	ColPredicted  = "predictedPep1"
	ColLocalFLR   = "localFLR"
	ColGlobalFLR  = "globalFLR"
	ColPep1Score  = "pep1score"
	ColPep2Score  = "pep2score"
	ColDeltaScore = "deltaScore"
)

// row is one raw line of the results file. Values stay text so that empty
// and missing cells can be told apart from zero.
type row struct {
	SpecID     string `csv:"specId"`
	Predicted  string `csv:"predictedPep1"`
	LocalFLR   string `csv:"localFLR"`
	GlobalFLR  string `csv:"globalFLR"`
	Pep1Score  string `csv:"pep1score"`
	Pep2Score  string `csv:"pep2score"`
	DeltaScore string `csv:"deltaScore"`
}

// Reader provides streaming access to a tab-separated Luciphor results file
type Reader struct {
	um       *gocsv.Unmarshaller
	log      logrus.FieldLogger
	lineNum  int
	skipped  int
	current  *Entry
	err      error
	extended bool
}

// NewReader reads the header line and prepares row decoding. A header
// without the PSM identifier or predicted sequence column is an error
// matching core.ErrMissingColumn.
func NewReader(r io.Reader, log logrus.FieldLogger) (*Reader, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, core.IOError("read localizer header", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("localizer file has no header: %w", core.ErrMissingColumn)
	}

	columns := make(map[string]bool)
	for _, name := range strings.Split(strings.TrimRight(header, "\r\n"), "\t") {
		columns[strings.TrimSpace(name)] = true
	}
	for _, required := range []string{ColSpecID, ColPredicted} {
		if !columns[required] {
			return nil, &core.ColumnError{Header: "localizer", Column: required}
		}
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	um, err := gocsv.NewUnmarshaller(cr, row{})
	if err != nil {
		return nil, fmt.Errorf("failed to decode localizer header: %w", err)
	}

	return &Reader{
		um:       um,
		log:      log,
		lineNum:  1,
		extended: columns[ColPep1Score] && columns[ColPep2Score] && columns[ColDeltaScore],
	}, nil
}

// Next advances to the next usable entry. Returns false at end of input or on error.
func (r *Reader) Next() bool {
	r.current = nil
	for {
		v, err := r.um.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = fmt.Errorf("line %d: %w", r.lineNum+1, err)
			}
			return false
		}
		r.lineNum++

		var raw row
		switch rv := v.(type) {
		case row:
			raw = rv
		case *row:
			raw = *rv
		default:
			r.err = fmt.Errorf("line %d: unexpected row type %T", r.lineNum, v)
			return false
		}

		entry, err := r.parseRow(raw)
		if err != nil {
			r.log.WithField("line", r.lineNum).Warnf("Skipping localizer row: %v", err)
			r.skipped++
			continue
		}
		if entry == nil {
			r.skipped++
			continue
		}
		r.current = entry
		return true
	}
}

// Entry returns the current entry
func (r *Reader) Entry() *Entry {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Skipped returns the number of rows that did not yield an entry
func (r *Reader) Skipped() int {
	return r.skipped
}

// ExtendedScores reports whether the file carries pep1score, pep2score and deltaScore.
func (r *Reader) ExtendedScores() bool {
	return r.extended
}

// parseRow returns nil without error for rows lacking the identifier or the
// predicted sequence.
func (r *Reader) parseRow(raw row) (*Entry, error) {
	psmID := strings.TrimSpace(raw.SpecID)
	predicted := strings.TrimSpace(raw.Predicted)
	if psmID == "" || predicted == "" {
		return nil, nil
	}

	entry := &Entry{
		PsmID:             psmID,
		PredictedSequence: predicted,
		LocalFLR:          math.NaN(),
		GlobalFLR:         math.NaN(),
	}

	var err error
	if entry.LocalFLR, err = parseFLR(raw.LocalFLR); err != nil {
		return nil, fmt.Errorf("psm %s: invalid %s '%s'", psmID, ColLocalFLR, raw.LocalFLR)
	}
	if entry.GlobalFLR, err = parseFLR(raw.GlobalFLR); err != nil {
		return nil, fmt.Errorf("psm %s: invalid %s '%s'", psmID, ColGlobalFLR, raw.GlobalFLR)
	}

	entry.Pep1Score = r.parseScore(psmID, ColPep1Score, raw.Pep1Score)
	entry.Pep2Score = r.parseScore(psmID, ColPep2Score, raw.Pep2Score)
	entry.DeltaScore = r.parseScore(psmID, ColDeltaScore, raw.DeltaScore)

	return entry, nil
}

// parseFLR maps an empty cell to NaN.
func parseFLR(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (r *Reader) parseScore(psmID, column, s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.log.WithFields(logrus.Fields{"psm": psmID, "column": column}).Debugf("Ignoring non-numeric score '%s'", s)
		return nil
	}
	return &v
}

// Table is a fully loaded results file
type Table struct {
	Entries        []*Entry
	Skipped        int
	ExtendedScores bool
}

// ReadAll loads every entry from r.
func ReadAll(r io.Reader, log logrus.FieldLogger) (*Table, error) {
	reader, err := NewReader(r, log)
	if err != nil {
		return nil, err
	}

	table := &Table{ExtendedScores: reader.ExtendedScores()}
	for reader.Next() {
		table.Entries = append(table.Entries, reader.Entry())
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error reading localizer file: %w", err)
	}
	table.Skipped = reader.Skipped()
	return table, nil
}

// ReadFile loads the results file at path.
func ReadFile(path string, log logrus.FieldLogger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.IOError("failed to open localizer file", err)
	}
	defer f.Close()

	table, err := ReadAll(f, log)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("file", path).Infof("%d PSMs read from Luciphor file", len(table.Entries))
	return table, nil
}

// ByPsmID indexes entries by PSM identifier. A repeated identifier keeps the
// last entry.
func ByPsmID(entries []*Entry) map[string]*Entry {
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m[e.PsmID] = e
	}
	return m
}
