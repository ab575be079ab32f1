package resume

import (
	"errors"
	"regexp"
	"strings"
)

// MaxAchievements is how many achievements an experience shows.
const MaxAchievements = 4

// ErrMissingName is returned by Validate for a résumé without a contact name.
var ErrMissingName = errors.New("resume has no contact name")

// Validate checks the minimum a résumé needs to be rendered.
func (r *Resume) Validate() error {
	if r == nil || strings.TrimSpace(r.ContactInfo.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// LimitAchievements returns at most max entries.
func LimitAchievements(items []string, max int) []string {
	if max < 0 {
		max = 0
	}
	if len(items) <= max {
		return items
	}
	return items[:max]
}

// FormatDuration turns "2020 - Présent" into "2020 · Présent". Only the
// first separator is replaced.
func FormatDuration(d string) string {
	return strings.Replace(d, " - ", " · ", 1)
}

var whitespace = regexp.MustCompile(`\s+`)

// PDFFilename builds CV_<name>_<title>.pdf with whitespace and slashes
// replaced by underscores.
func PDFFilename(name, jobTitle string) string {
	cleanName := whitespace.ReplaceAllString(name, "_")
	cleanTitle := strings.ReplaceAll(whitespace.ReplaceAllString(jobTitle, "_"), "/", "_")
	return "CV_" + cleanName + "_" + cleanTitle + ".pdf"
}

// PDFFilename returns the export file name of r.
func (r *Resume) PDFFilename() string {
	return PDFFilename(r.ContactInfo.Name, r.ContactInfo.JobTitle)
}

// PDFConfig describes the printed page.
type PDFConfig struct {
	Format          string // paper format, e.g. "A4"
	Landscape       bool
	MarginMM        float64
	PrintBackground bool
}

// DefaultPDFConfig is A4 portrait with 10 mm margins.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		Format:          "A4",
		Landscape:       false,
		MarginMM:        10,
		PrintBackground: true,
	}
}
