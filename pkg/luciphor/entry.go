// Package luciphor models PSM rows of a Luciphor localization result and
// merges their site calls into annotated report sequences.
package luciphor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/sequence"
)

// Entry is one scored PSM from the localizer file. A lowercase letter in
// PredictedSequence marks a residue the localizer considers modified. An
// FLR that was not reported is NaN.
type Entry struct {
	PsmID             string
	PredictedSequence string
	LocalFLR          float64
	GlobalFLR         float64

	// Optional auxiliary scores
	Pep1Score  *float64
	Pep2Score  *float64
	DeltaScore *float64
}

// HasScores reports whether any auxiliary score was read for this entry.
func (e *Entry) HasScores() bool {
	return e.Pep1Score != nil || e.Pep2Score != nil || e.DeltaScore != nil
}

// ScoreColumns renders pep1score, pep2score and deltaScore; absent scores are blank.
func (e *Entry) ScoreColumns() []string {
	return []string{formatOptional(e.Pep1Score), formatOptional(e.Pep2Score), formatOptional(e.DeltaScore)}
}

// FLRColumns renders globalFLR then localFLR.
func (e *Entry) FLRColumns() []string {
	return []string{formatFloat(e.GlobalFLR), formatFloat(e.LocalFLR)}
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ResidueSet is a set of uppercase residue letters.
type ResidueSet map[rune]struct{}

// Contains reports whether r (in either case) is in the set.
func (s ResidueSet) Contains(r rune) bool {
	_, ok := s[unicode.ToUpper(r)]
	return ok
}

// String lists the letters in order, e.g. "NST".
func (s ResidueSet) String() string {
	letters := make([]rune, 0, len(s))
	for r := range s {
		letters = append(letters, r)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return string(letters)
}

// ModifiedResidues collects every letter that appears lowercase in any
// predicted sequence.
func ModifiedResidues(entries []*Entry) ResidueSet {
	set := make(ResidueSet)
	for _, e := range entries {
		for _, r := range e.PredictedSequence {
			if unicode.IsLower(r) {
				set[unicode.ToUpper(r)] = struct{}{}
			}
		}
	}
	return set
}

// Reconcile rewrites original so that its modification masses sit on the
// residues the localizer marked, keeping the flanks as found. With the
// prediction QCTnVTnNITDDMRGELK,
//
//	L.QCTN(203.079373)VTNN(203.079373)ITDDMRGELK.N
//
// becomes
//
//	L.QCTN(203.079373)VTN(203.079373)NITDDMRGELK.N
//
// Modifications on residues outside modified (fixed ones such as
// carbamidomethyl) stay on their original position. Modifications on
// residues in modified are handed out in order to the lowercase residues of
// the prediction. Terminal modifications are kept at their terminus. A nil
// modified set means the letters lowercase in this entry alone.
//
// The result is an *core.MismatchError when the prediction does not cover the
// original residue for residue, or when the lowercase marks and the
// movable modifications do not pair up.
func (e *Entry) Reconcile(original string, modified ResidueSet) (string, error) {
	if modified == nil {
		modified = ModifiedResidues([]*Entry{e})
	}

	parsed, err := sequence.Parse(original)
	if err != nil {
		return "", err
	}

	pred := e.PredictedSequence
	if len(pred) != len(parsed.Clean) {
		return "", e.mismatch(original, fmt.Sprintf("length %d differs from original length %d", len(pred), len(parsed.Clean)))
	}
	if strings.ToUpper(pred) != parsed.Clean {
		return "", e.mismatch(original, "residues differ")
	}

	mods := parsed.Modifications
	consumed := make([]bool, len(mods))
	byPosition := make(map[int][]int)
	var movable []int // internal modifications on residues the localizer may move
	var nterm, cterm []int
	for i, mod := range mods {
		switch {
		case mod.IsNTerminal():
			nterm = append(nterm, i)
		case mod.IsCTerminal():
			cterm = append(cterm, i)
		default:
			byPosition[mod.Position] = append(byPosition[mod.Position], i)
			if modified.Contains(mod.Residue) {
				movable = append(movable, i)
			}
		}
	}

	var sb strings.Builder
	for _, i := range nterm {
		sb.WriteString(mods[i].Annotation())
		consumed[i] = true
	}

	next := 0
	for i, aa := range pred {
		upper := unicode.ToUpper(aa)
		sb.WriteRune(upper)

		if !modified.Contains(upper) {
			for _, j := range byPosition[i+1] {
				sb.WriteString(mods[j].Annotation())
				consumed[j] = true
			}
			continue
		}

		if !unicode.IsLower(aa) {
			continue
		}
		for next < len(movable) && consumed[movable[next]] {
			next++
		}
		if next == len(movable) {
			return "", e.mismatch(original, fmt.Sprintf("no modification left for localized residue %c%d", upper, i+1))
		}
		j := movable[next]
		sb.WriteString(mods[j].Annotation())
		consumed[j] = true
		next++
	}

	for _, i := range cterm {
		sb.WriteString(mods[i].Annotation())
		consumed[i] = true
	}

	left := 0
	for i := range mods {
		if !consumed[i] {
			left++
		}
	}
	if left > 0 {
		return "", e.mismatch(original, fmt.Sprintf("%d modification(s) not placed on a localized residue", left))
	}

	if !parsed.HasFlanks {
		return sb.String(), nil
	}
	return parsed.Before + "." + sb.String() + "." + parsed.After, nil
}

func (e *Entry) mismatch(original, reason string) error {
	return &core.MismatchError{
		PsmID:     e.PsmID,
		Predicted: e.PredictedSequence,
		Original:  original,
		Reason:    reason,
	}
}
