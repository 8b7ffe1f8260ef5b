package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Site letters for terminal modifications in ModDefinition.Residues
const (
	SiteNTerm = 'n'
	SiteCTerm = 'c'
)

// ModDefinition is a named mass shift and where it occurs. Residues holds
// one-letter residues plus 'n' and 'c' for the termini; empty means anywhere.
type ModDefinition struct {
	Name      string
	MassShift float64
	Residues  string
}

// Allows reports whether the modification can sit on site (a residue,
// SiteNTerm or SiteCTerm).
func (d ModDefinition) Allows(site rune) bool {
	return d.Residues == "" || strings.ContainsRune(d.Residues, site)
}

// ModDatabase maps modification names to definitions
type ModDatabase struct {
	mods map[string]ModDefinition
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]ModDefinition),
	}
}

// modRow is one line of a modification CSV (mod,massshift,aa)
type modRow struct {
	Mod       string `csv:"mod"`
	MassShift string `csv:"massshift"`
	AA        string `csv:"aa"`
}

// LoadFromCSV adds the modifications of a CSV file with header
// mod,massshift[,aa]. Later rows replace earlier ones of the same name.
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	um, err := gocsv.NewUnmarshaller(cr, modRow{})
	if err != nil {
		return fmt.Errorf("error reading CSV header: %w", err)
	}
	for _, required := range []string{"mod", "massshift"} {
		if !containsString(um.Headers, required) {
			return &ColumnError{Header: "modification CSV", Column: required}
		}
	}

	lineNum := 1
	for {
		v, err := um.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}

		var row modRow
		switch rv := v.(type) {
		case modRow:
			row = rv
		case *modRow:
			row = *rv
		default:
			return fmt.Errorf("line %d: unexpected row type %T", lineNum, v)
		}
		name := strings.TrimSpace(row.Mod)
		massStr := strings.TrimSpace(row.MassShift)
		if name == "" {
			continue
		}

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.AddDefinition(ModDefinition{
			Name:      name,
			MassShift: mass,
			Residues:  strings.ReplaceAll(strings.TrimSpace(row.AA), " ", ""),
		})
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) == s {
			return true
		}
	}
	return false
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	def, ok := db.mods[name]
	return def.MassShift, ok
}

// Lookup returns the definition for a modification name
func (db *ModDatabase) Lookup(name string) (ModDefinition, bool) {
	def, ok := db.mods[name]
	return def, ok
}

// Add adds or updates a modification allowed on any site
func (db *ModDatabase) Add(name string, mass float64) {
	db.AddDefinition(ModDefinition{Name: name, MassShift: mass})
}

// AddDefinition adds or updates a modification
func (db *ModDatabase) AddDefinition(def ModDefinition) {
	db.mods[def.Name] = def
}

// Len returns the number of known modifications
func (db *ModDatabase) Len() int {
	return len(db.mods)
}

// NameForMass returns the name of the modification whose mass shift is
// closest to mass and within tol, whatever its site.
func (db *ModDatabase) NameForMass(mass, tol float64) (string, bool) {
	return db.closest(mass, tol, func(ModDefinition) bool { return true })
}

// NameForSite is NameForMass preferring modifications that occur on site.
// Dehydration on E is named Glu->pyro-Glu, on S Dehydrated.
func (db *ModDatabase) NameForSite(mass float64, site rune, tol float64) (string, bool) {
	if name, ok := db.closest(mass, tol, func(d ModDefinition) bool { return d.Allows(site) }); ok {
		return name, true
	}
	return db.NameForMass(mass, tol)
}

// closest breaks ties alphabetically so aliases such as TMT and TMT6plex
// always give the same name.
func (db *ModDatabase) closest(mass, tol float64, keep func(ModDefinition) bool) (string, bool) {
	names := make([]string, 0, len(db.mods))
	for name := range db.mods {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestDiff := math.Inf(1)
	for _, name := range names {
		def := db.mods[name]
		if !keep(def) {
			continue
		}
		diff := math.Abs(def.MassShift - mass)
		if diff <= tol && diff < bestDiff {
			best = name
			bestDiff = diff
		}
	}
	return best, best != ""
}

// Describe labels every modification with its name when one is known,
// e.g. "N4:HexNAc;N8:HexNAc". Unknown masses fall back to the formatted value.
func (db *ModDatabase) Describe(mods []Modification, tol float64) string {
	parts := make([]string, 0, len(mods))
	for _, mod := range mods {
		label := mod.FormattedMass()
		if mod.DeltaMass != nil {
			site := mod.Residue
			switch {
			case mod.IsNTerminal():
				site = SiteNTerm
			case mod.IsCTerminal():
				site = SiteCTerm
			}
			if name, ok := db.NameForSite(*mod.DeltaMass, site, tol); ok {
				label = name
			}
		}
		parts = append(parts, mod.Site()+":"+label)
	}
	return strings.Join(parts, ";")
}

// unimod lists common modifications with the sites they are reported on
var unimod = []ModDefinition{
	{"Acetyl", 42.010565, "KSTn"},
	{"Amidated", -0.984016, "c"},
	{"Biotin", 226.077598, "Kn"},
	{"Carbamidomethyl", 57.021464, "C"},
	{"Carbamyl", 43.005814, "KRCMn"},
	{"Carboxymethyl", 58.005479, "C"},
	{"Deamidated", 0.984016, "NQR"},
	{"Met->Hse", -29.992806, "M"},
	{"Met->Hsl", -48.003371, "M"},
	{"NIPCAM", 99.068414, "C"},
	{"Phospho", 79.966331, "STYH"},
	{"Dehydrated", -18.010565, "STYDc"},
	{"Propionamide", 71.037114, "C"},
	{"Pyro-carbamidomethyl", 39.994915, "C"},
	{"Glu->pyro-Glu", -18.010565, "E"},
	{"Gln->pyro-Glu", -17.026549, "Q"},
	{"Cation:Na", 21.981943, "DEc"},
	{"Methyl", 14.01565, "KRHEDCn"},
	{"Oxidation", 15.994915, "MWHC"},
	{"Dimethyl", 28.0313, "KRn"},
	{"Trimethyl", 42.04695, "KR"},
	{"Methylthio", 45.987721, "C"},
	{"Sulfo", 79.956815, "STY"},
	{"Hex", 162.052824, "KNT"},
	{"Lipoyl", 188.032956, "K"},
	{"HexNAc", 203.079373, "NST"},
	{"Farnesyl", 204.187801, "C"},
	{"Myristoyl", 210.198366, "GKCn"},
	{"PyridoxalPhosphate", 229.014009, "K"},
	{"Palmitoyl", 238.229666, "CKST"},
	{"GeranylGeranyl", 272.250401, "C"},
	{"Phosphopantetheine", 340.085794, "S"},
	{"FAD", 783.141486, "CHY"},
	{"Guanidinyl", 42.021798, "K"},
	{"HNE", 156.11503, "CHK"},
	{"Glucuronyl", 176.032088, "Sn"},
	{"Glutathione", 305.068156, "C"},
	{"GlyGly", 114.042927, "KSTC"},
	{"Propionyl", 56.026215, "KSTn"},
	{"TMT", 229.162932, "KSTHn"},
	{"TMTPro", 304.207146, "KSTHn"},
	{"TMT6plex", 229.162932, "KSTHn"},
	{"TMT10plex", 229.162932, "KSTHn"},
	{"TMT11plex", 229.162932, "KSTHn"},
	{"TMT16plex", 304.207146, "KSTHn"},
	{"iTRAQ4plex", 144.102063, "KYn"},
	{"iTRAQ8plex", 304.205360, "KYn"},
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()
	for _, def := range unimod {
		db.AddDefinition(def)
	}
	return db
}
