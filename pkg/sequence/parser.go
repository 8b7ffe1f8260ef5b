// Package sequence parses annotated peptide sequences such as
// "R.PEPS(79.966331)TIDE.K": optional flanking residues separated by dots,
// and delta masses written in brackets or parentheses after the modified
// residue, before the first residue (N-terminal) or after a terminal token
// at the end (C-terminal).
package sequence

import (
	"strings"
	"unicode"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

// Annotated is a parsed annotated sequence.
type Annotated struct {
	Raw           string
	Before, After string // flanking residues, empty when HasFlanks is false
	HasFlanks     bool
	Core          string // annotated sequence between the flanks
	Clean         string // residues only, uppercase
	Modifications []core.Modification
}

// Parse splits seq into flanks, core, cleaned sequence and modifications.
func Parse(seq string) (*Annotated, error) {
	a := &Annotated{Raw: seq, Core: seq}
	if first, last, ok := flankCuts(seq); ok {
		a.Before = seq[:first]
		a.After = seq[last+1:]
		a.Core = seq[first+1 : last]
		a.HasFlanks = true
	}

	mods, clean, err := modifications(a.Core)
	if err != nil {
		return nil, err
	}
	a.Clean = clean
	a.Modifications = mods
	return a, nil
}

// BeforeSeq returns the residue(s) before the first flank separator, e.g.
// "R" for "R.LLLQQVSLPELPGEYSMK.V". It reports false when seq has no
// unambiguous flanks.
func BeforeSeq(seq string) (string, bool) {
	first, _, ok := flankCuts(seq)
	if !ok {
		return "", false
	}
	return seq[:first], true
}

// AfterSeq returns the residue(s) after the last flank separator, e.g. "V"
// for "R.LLLQQVSLPELPGEYSMK.V". It reports false when seq has no
// unambiguous flanks.
func AfterSeq(seq string) (string, bool) {
	_, last, ok := flankCuts(seq)
	if !ok {
		return "", false
	}
	return seq[last+1:], true
}

// SequenceInBetween strips the flanks: "R.LLLQQVSL(+80.123)PELPGEYSMK.V"
// becomes "LLLQQVSL(+80.123)PELPGEYSMK". Without flanks seq is returned as is.
func SequenceInBetween(seq string) string {
	first, last, ok := flankCuts(seq)
	if !ok {
		return seq
	}
	return seq[first+1 : last]
}

// CleanSequence returns the bare residue sequence:
//
//	K.VDLSFSPSQSLPASHAHLR.V -> VDLSFSPSQSLPASHAHLR
//	K.EKS[167.00]KESAIASTEVK.L -> EKSKESAIASTEVK
//
// Any residue left after stripping that is lowercase or not an amino-acid
// symbol makes the sequence unsupported.
func CleanSequence(seq string) (string, error) {
	return cleanCore(SequenceInBetween(strings.TrimSpace(seq)), seq)
}

// cleanCore strips every bracketed annotation from an unflanked sequence
// and validates the residues that remain. raw is only used in errors.
func cleanCore(inner, raw string) (string, error) {
	var sb strings.Builder
	depth := 0
	for _, r := range inner {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return "", &core.SequenceError{Sequence: raw, Reason: "unbalanced brackets"}
			}
		default:
			if depth == 0 {
				sb.WriteRune(r)
			}
		}
	}
	if depth != 0 {
		return "", &core.SequenceError{Sequence: raw, Reason: "unbalanced brackets"}
	}

	clean := sb.String()
	for _, r := range clean {
		if unicode.IsLower(r) {
			return "", &core.SequenceError{Sequence: raw, Reason: "lowercase residue '" + string(r) + "'; PTMs must be encoded as in PEPTID[+45.92]E"}
		}
		if !core.IsAminoAcid(r) {
			return "", &core.SequenceError{Sequence: raw, Reason: "'" + string(r) + "' not recognized"}
		}
	}
	return clean, nil
}

// ModificationsInPeptide returns the modifications of seq ordered by
// position. Positions refer to the cleaned sequence between the flanks.
func ModificationsInPeptide(seq string) ([]core.Modification, error) {
	mods, _, err := modifications(SequenceInBetween(seq))
	return mods, err
}

// token is a bracketed annotation before it is placed in the cleaned frame.
type token struct {
	anchor      int // residues seen before the opening bracket
	text        string
	open, close rune
	afterToken  bool // no residue between this token and the previous one
}

// modifications scans an unflanked annotated sequence once. A token is
// captured when the nesting depth returns to zero and is attributed to the
// residue preceding its opening bracket, counted in the stripped frame.
func modifications(annotated string) ([]core.Modification, string, error) {
	clean, err := cleanCore(annotated, annotated)
	if err != nil {
		return nil, "", err
	}

	var tokens []token
	residues := 0
	depth := 0
	start := 0
	lastWasToken := false
	var cur token
	for i, r := range annotated {
		switch r {
		case '(', '[':
			if depth == 0 {
				cur = token{anchor: residues, open: r, afterToken: lastWasToken}
				start = i + 1
			}
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				cur.text = annotated[start:i]
				cur.close = r
				if cur.text != "" {
					tokens = append(tokens, cur)
				}
				lastWasToken = true
			}
		default:
			if depth == 0 {
				residues++
				lastWasToken = false
			}
		}
	}

	mods := make([]core.Modification, 0, len(tokens))
	for _, tk := range tokens {
		position := tk.anchor
		residue := core.NoResidue
		switch {
		case tk.anchor == 0:
			// N-terminal
		case tk.afterToken && tk.anchor == len(clean):
			position = len(clean) + 1
		default:
			residue = rune(clean[tk.anchor-1])
		}
		mods = append(mods, core.NewModification(position, residue, clean, tk.text, tk.open, tk.close))
	}
	return mods, clean, nil
}

// flankCuts finds the dots separating flanking residues from the core. A
// separator sits outside brackets and has no digit on either side, since a
// dot next to a digit belongs to a mass. The first and last separators must
// be distinct.
func flankCuts(seq string) (first, last int, ok bool) {
	first, last = -1, -1
	depth := 0
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 && !isDigitAt(seq, i-1) && !isDigitAt(seq, i+1) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
	}
	return first, last, first >= 0 && first != last
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}
