// Package core provides the amino-acid alphabet, peptide masses, modification records and shared error kinds
package core

import (
	"math"
	"unicode"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassSe = 79.9165218

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S, Se int
}

// AminoAcidMasses maps amino acid one-letter codes to elemental composition
var AminoAcidMasses = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
	'U': {C: 3, H: 5, N: 1, O: 1, Se: 1}, // selenocysteine
	'O': {C: 12, H: 19, N: 3, O: 2},      // pyrrolysine
}

// ambiguityCodes are accepted in sequences but carry no composition.
var ambiguityCodes = map[rune]bool{
	'B': true, // D or N
	'Z': true, // E or Q
	'J': true, // I or L
	'X': true, // any
}

// IsAminoAcid reports whether r is a recognized one-letter residue symbol.
// Only uppercase letters are symbols; a lowercase letter is never accepted.
func IsAminoAcid(r rune) bool {
	if !unicode.IsUpper(r) {
		return false
	}
	if _, ok := AminoAcidMasses[r]; ok {
		return true
	}
	return ambiguityCodes[r]
}

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modifications, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	mass := CalculateNeutralMass(sequence, modifications)
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide.
// Residues without a composition and modifications without a mass are ignored.
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	comp := AminoAcidComposition{H: 2, O: 1} // Add water

	for _, aa := range sequence {
		if aaComp, ok := AminoAcidMasses[aa]; ok {
			comp.C += aaComp.C
			comp.H += aaComp.H
			comp.N += aaComp.N
			comp.O += aaComp.O
			comp.S += aaComp.S
			comp.Se += aaComp.Se
		}
	}

	mass := float64(comp.C)*MassC +
		float64(comp.H)*MassH +
		float64(comp.N)*MassN +
		float64(comp.O)*MassO +
		float64(comp.S)*MassS +
		float64(comp.Se)*MassSe

	for _, mod := range modifications {
		if mod.DeltaMass != nil {
			mass += *mod.DeltaMass
		}
	}

	return mass
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
