package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/sequence"
)

// Problem is a PSM row whose sequence could not be parsed
type Problem struct {
	Line  int
	PsmID string
	Err   error
}

// Summary is what Scan found in a report
type Summary struct {
	Proteins int
	PSMs     int
	Problems []Problem
}

// Scan reads a report without rewriting it. Header errors are returned;
// unparseable PSM sequences are collected as problems.
func Scan(r io.Reader) (*Summary, error) {
	var (
		psmCols   *HeaderIndex
		locusCols *HeaderIndex
		sum       = &Summary{}
		lineNum   int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case strings.HasPrefix(line, trailingMarker):
			return sum, nil
		case strings.HasPrefix(line, psmHeaderPrefix):
			psmCols = ParseHeader("PSM", line)
			if err := psmCols.Require(ColFileName, ColSequence, ColRedundancy); err != nil {
				return sum, fmt.Errorf("report line %d: %w", lineNum, err)
			}
		case strings.HasPrefix(line, locusHeaderPrefix):
			locusCols = ParseHeader("locus", line)
			if err := locusCols.Require(ColSequenceCount, ColSpectrumCount); err != nil {
				return sum, fmt.Errorf("report line %d: %w", lineNum, err)
			}
		case psmCols == nil:
		case strings.HasPrefix(line, "\t"), strings.HasPrefix(line, "*\t"):
			sum.PSMs++
			fields := strings.Split(line, "\t")
			if _, err := sequence.CleanSequence(psmCols.Field(fields, ColSequence)); err != nil {
				sum.Problems = append(sum.Problems, Problem{
					Line:  lineNum,
					PsmID: strings.TrimSpace(psmCols.Field(fields, ColFileName)),
					Err:   err,
				})
			}
		default:
			if locusCols == nil {
				return sum, fmt.Errorf("report line %d: %w", lineNum, &core.ColumnError{Header: "locus", Column: ColSequenceCount})
			}
			sum.Proteins++
		}
	}
	if err := sc.Err(); err != nil {
		return sum, core.IOError("read report", err)
	}
	return sum, nil
}
