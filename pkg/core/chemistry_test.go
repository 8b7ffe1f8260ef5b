package core

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

const massTolerance = 0.001

func TestCalculateNeutralMass(t *testing.T) {
	phospho := ptr(79.966331)

	tests := []struct {
		sequence string
		mods     []Modification
		want     float64
	}{
		{"PEPTIDE", nil, 799.359964},
		{"PEPTIDE", []Modification{{Residue: 'T', Position: 4, DeltaMass: phospho}}, 879.326295},
		{"PEPSTIDE", []Modification{
			{Residue: 'S', Position: 4, DeltaMass: phospho},
			{Residue: 'T', Position: 5, DeltaMass: phospho},
		}, 1046.324654},
		{"PEPTIDE", []Modification{{Residue: 'T', Position: 4, Token: "Phospho"}}, 799.359964},
		{"PEPTIDEX", nil, 799.359964},
		{"", nil, 18.010565},
	}

	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			got := CalculateNeutralMass(tt.sequence, tt.mods)
			if math.Abs(got-tt.want) > massTolerance {
				t.Errorf("CalculateNeutralMass(%q) = %.6f, want %.6f", tt.sequence, got, tt.want)
			}
		})
	}
}

func TestCalculatePeptideMass(t *testing.T) {
	for charge, want := range map[int]float64{1: 800.367240, 2: 400.687258, 3: 267.460597} {
		got := CalculatePeptideMass("PEPTIDE", charge, nil)
		if math.Abs(got-want) > massTolerance {
			t.Errorf("CalculatePeptideMass(PEPTIDE, %d) = %.6f, want %.6f", charge, got, want)
		}
	}
}

func TestIsAminoAcid(t *testing.T) {
	for _, r := range "ACDEFGHIKLMNPQRSTVWYUOBZJX" {
		if !IsAminoAcid(r) {
			t.Errorf("IsAminoAcid(%q) = false", r)
		}
	}
	// lowercase letters mark localized sites, never residues
	for _, r := range "stynacdx1.()[]*-+ " {
		if IsAminoAcid(r) {
			t.Errorf("IsAminoAcid(%q) = true", r)
		}
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		val       float64
		precision int
		want      float64
	}{
		{79.96633052, 6, 79.966331},
		{-18.0105646837, 6, -18.010565},
		{203.0793725, 4, 203.0794},
		{0.6, 0, 1},
	}

	for _, tt := range tests {
		if got := RoundFloat(tt.val, tt.precision); got != tt.want {
			t.Errorf("RoundFloat(%v, %d) = %v, want %v", tt.val, tt.precision, got, tt.want)
		}
	}
}
