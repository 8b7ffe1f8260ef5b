package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoResidue marks a terminal modification that is not attached to a residue.
const NoResidue rune = 0

// massDecimals is the precision used when a delta mass is written back into a sequence.
const massDecimals = 6

// Modification is one delta-mass annotation found in a peptide sequence.
// Position is 0 for an N-terminal modification, len(Peptide)+1 for a
// C-terminal one and otherwise the 1-based index of the modified residue.
type Modification struct {
	Position  int
	Residue   rune     // NoResidue for terminal modifications
	Peptide   string   // cleaned sequence the position refers to
	DeltaMass *float64 // nil when the token is not a number
	Token     string   // annotation text between the delimiters
	Open      rune     // '(' or '['
	Close     rune     // ')' or ']'
}

// NewModification builds a record from the raw annotation token. A token that
// does not parse as a number keeps a nil mass.
func NewModification(position int, residue rune, peptide, token string, open, closing rune) Modification {
	mod := Modification{
		Position: position,
		Residue:  residue,
		Peptide:  peptide,
		Token:    token,
		Open:     open,
		Close:    closing,
	}
	if mass, err := strconv.ParseFloat(strings.TrimSpace(token), 64); err == nil && !math.IsNaN(mass) && !math.IsInf(mass, 0) {
		mod.DeltaMass = &mass
	}
	return mod
}

// IsNTerminal reports whether the modification sits before the first residue.
func (m Modification) IsNTerminal() bool {
	return m.Position == 0
}

// IsCTerminal reports whether the modification sits after the last residue.
func (m Modification) IsCTerminal() bool {
	return m.Position == len(m.Peptide)+1
}

// FormattedMass renders the delta mass with at most six decimals and no
// trailing zeros. An unparsed token is returned verbatim.
func (m Modification) FormattedMass() string {
	if m.DeltaMass == nil {
		return m.Token
	}
	return strconv.FormatFloat(RoundFloat(*m.DeltaMass, massDecimals), 'f', -1, 64)
}

// Annotation renders the mass inside the delimiters it was read with.
func (m Modification) Annotation() string {
	open, closing := m.Open, m.Close
	if open == 0 || closing == 0 {
		open, closing = '(', ')'
	}
	return string(open) + m.FormattedMass() + string(closing)
}

// Site names the modified location: "Nterm", "Cterm" or residue plus position.
func (m Modification) Site() string {
	switch {
	case m.IsNTerminal():
		return "Nterm"
	case m.IsCTerminal():
		return "Cterm"
	}
	return fmt.Sprintf("%c%d", m.Residue, m.Position)
}

// String returns a description like "PEPTIDE-T4(79.966331)".
func (m Modification) String() string {
	return fmt.Sprintf("%s-%s%s", m.Peptide, m.Site(), m.Annotation())
}
