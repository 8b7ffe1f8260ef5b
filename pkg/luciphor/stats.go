package luciphor

import (
	"math"
	"sort"
	"unicode"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FLRStats summarizes one FLR column. Values are NaN when nothing was reported.
type FLRStats struct {
	N       int
	Missing int
	Mean    float64
	StdDev  float64
	Median  float64
	Min     float64
	Max     float64
}

// Description summarizes a results table
type Description struct {
	Entries        int
	Skipped        int
	ExtendedScores bool
	Modified       string       // residues scored by the localizer
	Sites          map[rune]int // localized sites per residue
	Local          FLRStats
	Global         FLRStats
}

// Describe computes counts and FLR statistics for a table
func Describe(table *Table) Description {
	d := Description{
		Entries:        len(table.Entries),
		Skipped:        table.Skipped,
		ExtendedScores: table.ExtendedScores,
		Modified:       ModifiedResidues(table.Entries).String(),
		Sites:          make(map[rune]int),
	}

	local := make([]float64, 0, len(table.Entries))
	global := make([]float64, 0, len(table.Entries))
	for _, e := range table.Entries {
		local = append(local, e.LocalFLR)
		global = append(global, e.GlobalFLR)
		for _, r := range e.PredictedSequence {
			if unicode.IsLower(r) {
				d.Sites[unicode.ToUpper(r)]++
			}
		}
	}
	d.Local = describeFLR(local)
	d.Global = describeFLR(global)
	return d
}

func describeFLR(values []float64) FLRStats {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	s := FLRStats{
		N:       len(present),
		Missing: len(values) - len(present),
		Mean:    math.NaN(),
		StdDev:  math.NaN(),
		Median:  math.NaN(),
		Min:     math.NaN(),
		Max:     math.NaN(),
	}
	if len(present) == 0 {
		return s
	}

	sort.Float64s(present)
	s.Mean = stat.Mean(present, nil)
	if len(present) > 1 {
		s.StdDev = stat.StdDev(present, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, present, nil)
	s.Min = floats.Min(present)
	s.Max = floats.Max(present)
	return s
}
