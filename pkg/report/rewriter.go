// Package report rewrites a DTASelect-style protein/PSM report so that PSM
// sequences carry the localizer's site calls.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/luciphor"
)

// State is the section of the report the rewriter is in
type State int

const (
	Preamble State = iota
	ProteinHeader
	InProteinGroup
	PSMHeader
	TrailingTable
)

func (s State) String() string {
	switch s {
	case Preamble:
		return "Preamble"
	case ProteinHeader:
		return "ProteinHeader"
	case InProteinGroup:
		return "InProteinGroup"
	case PSMHeader:
		return "PSMHeader"
	case TrailingTable:
		return "TrailingTable"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Change describes one PSM row matched to a localizer entry.
type Change struct {
	PsmID      string
	Original   string
	Reconciled string
	Changed    bool
	Entry      *luciphor.Entry
}

// Recorder receives every matched PSM row.
type Recorder interface {
	Record(c Change) error
}

// Config controls a rewrite
type Config struct {
	Passed        map[string]*luciphor.Entry // entries within the thresholds, by PSM id
	Failed        map[string]*luciphor.Entry // entries that failed the thresholds, by PSM id
	Modified      luciphor.ResidueSet        // residues the localizer scores; nil = per entry
	RemoveFailing bool                       // drop rows of entries in Failed
	Extended      bool                       // append pep1score, pep2score and deltaScore
	Recorder      Recorder
	Log           logrus.FieldLogger
}

// Stats counts what a rewrite did
type Stats struct {
	PSMs            int // PSM rows read
	Matched         int // rows reconciled with a passing entry
	Changed         int // matched rows whose sequence changed
	Mismatched      int // rows whose entry could not be reconciled
	RemovedPSMs     int
	RemovedProteins int
}

// ExtraColumns lists the columns appended to the PSM header.
func ExtraColumns(extended bool) []string {
	cols := []string{ColOriginalSequence}
	if extended {
		cols = append(cols, luciphor.ColPep1Score, luciphor.ColPep2Score, luciphor.ColDeltaScore)
	}
	return append(cols, luciphor.ColGlobalFLR, luciphor.ColLocalFLR)
}

type psmLine struct {
	text       string
	eol        string
	redundancy string
}

type locusLine struct {
	text string
	eol  string
}

// group is one protein: its contiguous locus lines followed by the PSM rows
// kept so far.
type group struct {
	loci    []locusLine
	psms    []psmLine
	sawPSM  bool
	removed int
}

// Rewriter streams a report from a reader to a writer
type Rewriter struct {
	cfg   Config
	log   logrus.FieldLogger
	w     *bufio.Writer
	state State

	psmCols   *HeaderIndex
	locusCols *HeaderIndex
	blank     string

	group   *group
	stats   Stats
	lineNum int
}

// NewRewriter creates a rewriter writing to w
func NewRewriter(w io.Writer, cfg Config) *Rewriter {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Rewriter{
		cfg:   cfg,
		log:   log,
		w:     bufio.NewWriter(w),
		state: Preamble,
		blank: strings.Repeat("\t", len(ExtraColumns(cfg.Extended))),
	}
}

// Rewrite copies r to w, rewriting PSM rows and protein groups.
func Rewrite(r io.Reader, w io.Writer, cfg Config) (Stats, error) {
	rw := NewRewriter(w, cfg)
	err := rw.Run(r)
	return rw.Stats(), err
}

// State returns the current section
func (rw *Rewriter) State() State {
	return rw.state
}

// Stats returns the counters so far
func (rw *Rewriter) Stats() Stats {
	return rw.stats
}

// Run processes every line of r and flushes the output.
func (rw *Rewriter) Run(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			rw.lineNum++
			line, eol := splitEOL(raw)
			if perr := rw.processLine(line, eol); perr != nil {
				return fmt.Errorf("report line %d: %w", rw.lineNum, perr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.IOError("read report", err)
		}
	}

	if err := rw.flushGroup(); err != nil {
		return err
	}
	if err := rw.w.Flush(); err != nil {
		return core.IOError("write report", err)
	}
	return nil
}

func splitEOL(raw string) (string, string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	}
	return raw, ""
}

func (rw *Rewriter) processLine(line, eol string) error {
	if rw.state == TrailingTable {
		return rw.write(line, eol)
	}

	switch {
	case strings.HasPrefix(line, trailingMarker):
		if err := rw.flushGroup(); err != nil {
			return err
		}
		rw.state = TrailingTable
		return rw.write(line, eol)

	case strings.HasPrefix(line, psmHeaderPrefix):
		return rw.psmHeader(line, eol)

	case strings.HasPrefix(line, locusHeaderPrefix):
		rw.locusCols = ParseHeader("locus", line)
		if err := rw.locusCols.Require(ColSequenceCount, ColSpectrumCount); err != nil {
			return err
		}
		rw.state = ProteinHeader
		return rw.write(line, eol)
	}

	if rw.psmCols == nil {
		return rw.write(line, eol)
	}

	if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "*\t") {
		return rw.psmRow(line, eol)
	}
	return rw.locusRow(line, eol)
}

func (rw *Rewriter) psmHeader(line, eol string) error {
	if err := rw.flushGroup(); err != nil {
		return err
	}
	rw.psmCols = ParseHeader("PSM", line)
	if err := rw.psmCols.Require(ColFileName, ColSequence, ColRedundancy); err != nil {
		return err
	}
	rw.state = PSMHeader
	return rw.write(line+"\t"+strings.Join(ExtraColumns(rw.cfg.Extended), "\t"), eol)
}

func (rw *Rewriter) locusRow(line, eol string) error {
	if rw.locusCols == nil {
		return &core.ColumnError{Header: "locus", Column: ColSequenceCount}
	}
	if rw.group != nil && rw.group.sawPSM {
		if err := rw.flushGroup(); err != nil {
			return err
		}
	}
	if rw.group == nil {
		rw.group = &group{}
	}
	rw.group.loci = append(rw.group.loci, locusLine{text: line, eol: eol})
	rw.state = InProteinGroup
	return nil
}

func (rw *Rewriter) psmRow(line, eol string) error {
	rw.stats.PSMs++
	if rw.group == nil {
		rw.group = &group{}
	}
	rw.group.sawPSM = true
	rw.state = InProteinGroup

	fields := strings.Split(line, "\t")
	for len(fields) < rw.psmCols.Width() {
		fields = append(fields, "")
	}
	psmID := strings.TrimSpace(rw.psmCols.Field(fields, ColFileName))
	log := rw.log.WithField("psm", psmID)

	if entry, ok := rw.cfg.Passed[psmID]; ok {
		trailing, err := rw.reconcile(fields, entry, log)
		if err == nil {
			rw.keep(fields, trailing, eol)
			return nil
		}
		if !errors.Is(err, core.ErrEntryMismatch) {
			return err
		}
		rw.stats.Mismatched++
		log.Warnf("Keeping PSM unchanged: %v", err)
		rw.keep(fields, rw.blank, eol)
		return nil
	}

	if _, failed := rw.cfg.Failed[psmID]; failed && rw.cfg.RemoveFailing {
		rw.stats.RemovedPSMs++
		rw.group.removed++
		log.Debug("Removing PSM that failed the threshold(s)")
		return nil
	}

	rw.keep(fields, rw.blank, eol)
	return nil
}

// reconcile replaces the sequence column of fields and returns the trailing
// columns for the row.
func (rw *Rewriter) reconcile(fields []string, entry *luciphor.Entry, log logrus.FieldLogger) (string, error) {
	idx, _ := rw.psmCols.Index(ColSequence)
	original := strings.TrimSpace(fields[idx])

	reconciled, err := entry.Reconcile(original, rw.cfg.Modified)
	if err != nil {
		return "", err
	}

	changed := reconciled != original
	if rw.cfg.Recorder != nil {
		if err := rw.cfg.Recorder.Record(Change{
			PsmID:      entry.PsmID,
			Original:   original,
			Reconciled: reconciled,
			Changed:    changed,
			Entry:      entry,
		}); err != nil {
			return "", fmt.Errorf("failed to record PSM %s: %w", entry.PsmID, err)
		}
	}

	rw.stats.Matched++
	var sb strings.Builder
	sb.WriteString("\t")
	if changed {
		rw.stats.Changed++
		fields[idx] = reconciled
		sb.WriteString(original)
		log.WithFields(logrus.Fields{"from": original, "to": reconciled}).Debug("Relocated modification sites")
	}
	if rw.cfg.Extended {
		for _, v := range entry.ScoreColumns() {
			sb.WriteString("\t" + v)
		}
	}
	for _, v := range entry.FLRColumns() {
		sb.WriteString("\t" + v)
	}
	return sb.String(), nil
}

func (rw *Rewriter) keep(fields []string, trailing, eol string) {
	line := strings.Join(fields, "\t") + trailing
	rw.group.psms = append(rw.group.psms, psmLine{
		text:       line,
		eol:        eol,
		redundancy: rw.psmCols.Field(fields, ColRedundancy),
	})
}

// flushGroup writes the buffered group with recomputed counts, or drops it
// when every one of its PSM rows was removed.
func (rw *Rewriter) flushGroup() error {
	g := rw.group
	rw.group = nil
	if g == nil {
		return nil
	}

	if len(g.psms) == 0 && g.removed > 0 {
		if len(g.loci) > 0 {
			rw.stats.RemovedProteins++
			rw.log.WithField("locus", locusName(g.loci[0].text)).Debug("Removing protein without PSMs")
		}
		return nil
	}

	if len(g.psms) > 0 {
		spectra := 0
		for _, p := range g.psms {
			n, err := strconv.Atoi(strings.TrimSpace(p.redundancy))
			if err != nil {
				rw.log.Warnf("Non-numeric %s '%s' counted as 1", ColRedundancy, p.redundancy)
				n = 1
			}
			spectra += n
		}
		for i, l := range g.loci {
			fields := strings.Split(l.text, "\t")
			fields = rw.locusCols.Set(fields, ColSequenceCount, strconv.Itoa(len(g.psms)))
			fields = rw.locusCols.Set(fields, ColSpectrumCount, strconv.Itoa(spectra))
			g.loci[i].text = strings.Join(fields, "\t")
		}
	}

	for _, l := range g.loci {
		if err := rw.write(l.text, l.eol); err != nil {
			return err
		}
	}
	for _, p := range g.psms {
		if err := rw.write(p.text, p.eol); err != nil {
			return err
		}
	}
	return nil
}

func locusName(line string) string {
	name, _, _ := strings.Cut(line, "\t")
	return name
}

func (rw *Rewriter) write(line, eol string) error {
	if _, err := rw.w.WriteString(line + eol); err != nil {
		return core.IOError("write report", err)
	}
	return nil
}
