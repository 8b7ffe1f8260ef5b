// Package filter applies false-localization-rate ceilings to localizer entries
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
	"github.com/ChrisMcGann/LocIntegrator/pkg/luciphor"
)

// Config holds filtering configuration
type Config struct {
	LocalFLR  *float64 // Keep entries with localFLR <= this (nil = no ceiling)
	GlobalFLR *float64 // Keep entries with globalFLR <= this (nil = no ceiling)
}

// Enabled reports whether at least one ceiling is set
func (c *Config) Enabled() bool {
	return c.LocalFLR != nil || c.GlobalFLR != nil
}

// Validate checks that every configured ceiling is a finite number in [0,1]
func (c *Config) Validate() error {
	if err := checkRange("Local FLR", c.LocalFLR); err != nil {
		return err
	}
	return checkRange("Global FLR", c.GlobalFLR)
}

func checkRange(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > 1 {
		return &core.ThresholdError{Name: name, Value: *v}
	}
	return nil
}

// Passes reports whether an entry is within every configured ceiling. An
// entry without a reported FLR fails a ceiling on that FLR.
func (c *Config) Passes(e *luciphor.Entry) bool {
	if c.LocalFLR != nil && !(e.LocalFLR <= *c.LocalFLR) {
		return false
	}
	if c.GlobalFLR != nil && !(e.GlobalFLR <= *c.GlobalFLR) {
		return false
	}
	return true
}

// Apply splits entries into those passing the ceilings and those failing
// them. Without ceilings every entry passes.
func (c *Config) Apply(entries []*luciphor.Entry, log logrus.FieldLogger) (passed, failed []*luciphor.Entry) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if !c.Enabled() {
		log.Info("No threshold was defined. All PSMs from Luciphor are considered.")
		return entries, nil
	}

	for _, e := range entries {
		if c.Passes(e) {
			passed = append(passed, e)
		} else {
			failed = append(failed, e)
		}
	}

	log.WithFields(logrus.Fields{
		"passed": len(passed),
		"total":  len(entries),
	}).Infof("%d/%d %s PSMs from Luciphor pass the threshold(s)", len(passed), len(entries), Percentage(len(passed), len(entries)))

	return passed, failed
}

// ParseThreshold converts a command-line value to a ceiling. An empty value
// means no ceiling.
func ParseThreshold(name, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%s threshold '%s' is not a number: %w", name, value, core.ErrThresholdRange)
	}
	if err := checkRange(name, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Percentage formats n/total like "(12.5%)" with at most one decimal.
func Percentage(n, total int) string {
	if total == 0 {
		return "(0%)"
	}
	pct := core.RoundFloat(float64(n)*100/float64(total), 1)
	return "(" + strconv.FormatFloat(pct, 'f', -1, 64) + "%)"
}
