package reports

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/logger"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Ana Pérez":          "ana_perez",
		"  Periodo 1 ":       "periodo_1",
		"Párvulos A":         "parvulos_a",
		"Muñoz, José-Ángel!": "munoz_jose_angel",
		"":                   "sin_nombre",
		"¿?":                 "sin_nombre",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "Sanitize(%q)", in)
	}
}

func TestReportCardFilename(t *testing.T) {
	assert.Equal(t, "boletin_ana_perez_7_periodo_1.pdf", ReportCardFilename(7, "Ana Pérez", "Periodo 1"))
	assert.Equal(t, "listado_parvulos_a.pdf", RosterFilename("Párvulos A"))
	assert.Equal(t, "historial_ana_perez_7.pdf", HistoryFilename(7, "Ana Pérez"))
	assert.NotEqual(t, ReportCardFilename(7, "Ana Pérez", "Periodo 1"), ReportCardFilename(8, "Ana Pérez", "Periodo 1"))
}

func newTestWriter(t *testing.T) *Writer {
	return NewWriter(filepath.Join(t.TempDir(), "out"), logger.New(io.Discard, logger.DEBUG))
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(b) > 100)
	assert.Equal(t, "%PDF", string(b[:4]))
}

func TestWriteReportCard(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.ReportCard(ReportCardData{
		StudentID:   3,
		StudentName: "Ana Pérez",
		GroupName:   "Párvulos A",
		PeriodName:  "Periodo 1",
		TeacherName: "Inés Ruiz",
		GeneratedAt: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		Rows: []EvaluationRow{
			{Category: "Lenguaje", Achievement: "Reconoce las vocales", Score: "Superior"},
			{Category: "Matemáticas", Achievement: "Cuenta hasta 20", Score: "Básico", Comments: "Refuerzo en casa"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "boletin_ana_perez_3_periodo_1.pdf"), path)
	assertPDF(t, path)
}

func TestWriteRosterAndHistory(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.GroupRoster(RosterData{GroupName: "Párvulos A", MaxCapacity: 12})
	require.NoError(t, err)
	assertPDF(t, path)

	path, err = w.AchievementHistory(HistoryData{
		StudentID:   3,
		StudentName: "Ana Pérez",
		Rows:        []HistoryRow{{Period: "Periodo 1", Achievement: "Cuenta hasta 20", Score: "Alto", EvaluatedAt: time.Now()}},
	})
	require.NoError(t, err)
	assert.Equal(t, "historial_ana_perez_3.pdf", filepath.Base(path))
	assertPDF(t, path)
}
