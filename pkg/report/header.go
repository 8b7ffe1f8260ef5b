package report

import (
	"strings"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

// Column names read from the report headers
const (
	ColFileName      = "FileName"
	ColSequence      = "Sequence"
	ColRedundancy    = "Redundancy"
	ColSequenceCount = "Sequence Count"
	ColSpectrumCount = "Spectrum Count"

	ColOriginalSequence = "original_sequence"
)

// Line prefixes that identify the report sections
const (
	psmHeaderPrefix   = "Unique\t"
	locusHeaderPrefix = "Locus\t"
	trailingMarker    = "\tProteins\t"
)

// HeaderIndex maps a column name to its position in a tab-separated header.
type HeaderIndex struct {
	kind    string
	names   []string
	indexes map[string]int
}

// ParseHeader builds the index for one header line. kind names the header
// in errors ("PSM", "locus").
func ParseHeader(kind, line string) *HeaderIndex {
	names := strings.Split(line, "\t")
	h := &HeaderIndex{
		kind:    kind,
		names:   names,
		indexes: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := h.indexes[name]; !dup {
			h.indexes[name] = i
		}
	}
	return h
}

// Index returns the position of a column.
func (h *HeaderIndex) Index(name string) (int, bool) {
	i, ok := h.indexes[name]
	return i, ok
}

// Width is the number of columns in the header.
func (h *HeaderIndex) Width() int {
	return len(h.names)
}

// Require checks that every named column is present.
func (h *HeaderIndex) Require(names ...string) error {
	for _, name := range names {
		if _, ok := h.indexes[name]; !ok {
			return &core.ColumnError{Header: h.kind, Column: name}
		}
	}
	return nil
}

// Field returns the value of a column in fields, or "" when the row is too
// short.
func (h *HeaderIndex) Field(fields []string, name string) string {
	i, ok := h.indexes[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// Set overwrites a column in fields, growing the row when it is too short.
func (h *HeaderIndex) Set(fields []string, name, value string) []string {
	i, ok := h.indexes[name]
	if !ok {
		return fields
	}
	for len(fields) <= i {
		fields = append(fields, "")
	}
	fields[i] = value
	return fields
}
