package reports

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize turns free text into a filename fragment: accents folded,
// lowercased, every other run of characters collapsed to "_". Empty input
// yields "sin_nombre".
func Sanitize(s string) string {
	folded, _, err := transform.String(foldAccents, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Trim(reNonAlnum.ReplaceAllString(folded, "_"), "_")
	if folded == "" {
		return "sin_nombre"
	}
	return folded
}

// ReportCardFilename is e.g. "boletin_ana_perez_12_periodo_1.pdf". The
// student id keeps namesakes apart.
func ReportCardFilename(studentID int64, student, period string) string {
	return fmt.Sprintf("boletin_%s_%d_%s.pdf", Sanitize(student), studentID, Sanitize(period))
}

func RosterFilename(group string) string {
	return "listado_" + Sanitize(group) + ".pdf"
}

func HistoryFilename(studentID int64, student string) string {
	return fmt.Sprintf("historial_%s_%d.pdf", Sanitize(student), studentID)
}
