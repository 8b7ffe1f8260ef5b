package core

import (
	"errors"
	"strings"
	"testing"
)

func TestNameForMass(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		mass     float64
		wantName string
		wantOK   bool
	}{
		{79.966331, "Phospho", true},
		{203.0794, "HexNAc", true},
		{229.162932, "TMT", true},
		{-18.010565, "Dehydrated", true},
		{123.456, "", false},
	}

	for _, tt := range tests {
		name, ok := db.NameForMass(tt.mass, 0.001)
		if name != tt.wantName || ok != tt.wantOK {
			t.Errorf("NameForMass(%v) = %q, %v; want %q, %v", tt.mass, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestDescribe(t *testing.T) {
	db := DefaultModDatabase()
	mods := []Modification{
		NewModification(0, NoResidue, "QCTNVK", "42.010565", '(', ')'),
		NewModification(4, 'N', "QCTNVK", "203.079373", '(', ')'),
		NewModification(5, 'V', "QCTNVK", "1.2345", '(', ')'),
	}
	want := "Nterm:Acetyl;N4:HexNAc;V5:1.2345"
	if got := db.Describe(mods, 0.001); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestLoadFromCSV(t *testing.T) {
	db := NewModDatabase()
	csv := "mod,massshift,aa\nGlyGly,114.042927,K\n\nCustom,1.5,S\n"
	if err := db.LoadFromCSV(strings.NewReader(csv)); err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}
	if db.Len() != 2 {
		t.Fatalf("expected 2 modifications, got %d", db.Len())
	}
	if mass, ok := db.GetMass("GlyGly"); !ok || mass != 114.042927 {
		t.Errorf("GetMass(GlyGly) = %v, %v", mass, ok)
	}

	if def, ok := db.Lookup("GlyGly"); !ok || def.Residues != "K" {
		t.Errorf("Lookup(GlyGly) = %+v, %v", def, ok)
	}

	bad := NewModDatabase()
	if err := bad.LoadFromCSV(strings.NewReader("mod,massshift\nBroken,abc\n")); err == nil {
		t.Error("expected error for non-numeric mass")
	}
	if err := bad.LoadFromCSV(strings.NewReader("name,mass\nX,1\n")); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("LoadFromCSV() without mod column error = %v", err)
	}
}

func TestNameForSite(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		mass     float64
		site     rune
		wantName string
	}{
		{-18.010565, 'E', "Glu->pyro-Glu"},
		{-18.010565, 'S', "Dehydrated"},
		{-18.010565, 'K', "Dehydrated"},
		{42.010565, SiteNTerm, "Acetyl"},
		{229.162932, 'K', "TMT"},
	}

	for _, tt := range tests {
		name, ok := db.NameForSite(tt.mass, tt.site, 0.001)
		if !ok || name != tt.wantName {
			t.Errorf("NameForSite(%v, %c) = %q, %v; want %q", tt.mass, tt.site, name, ok, tt.wantName)
		}
	}
}

func TestAllows(t *testing.T) {
	phospho := ModDefinition{Name: "Phospho", MassShift: 79.966331, Residues: "STY"}
	if !phospho.Allows('S') || phospho.Allows('K') || phospho.Allows(SiteNTerm) {
		t.Errorf("Allows() wrong for %+v", phospho)
	}
	if !(ModDefinition{Name: "Any"}).Allows('K') {
		t.Error("a definition without residues should allow any site")
	}
}
