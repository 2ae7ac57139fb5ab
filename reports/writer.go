// Package reports renders report cards, group rosters and achievement
// histories as PDF files. It works on plain data copied out of a unit of
// work and never touches the store.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"schoolRecords/logger"
)

type EvaluationRow struct {
	Category    string
	Achievement string
	Score       string
	Comments    string
}

type ReportCardData struct {
	StudentID      int64
	StudentName    string
	DocumentNumber string
	GroupName      string
	PeriodName     string
	TeacherName    string
	GeneratedAt    time.Time
	Observations   string
	Rows           []EvaluationRow
}

type RosterRow struct {
	Name     string
	Document string
	Email    string
}

type RosterData struct {
	GroupName    string
	GradeName    string
	DirectorName string
	MaxCapacity  int
	Students     []RosterRow
}

type HistoryRow struct {
	Period      string
	Achievement string
	Score       string
	EvaluatedAt time.Time
}

type HistoryData struct {
	StudentID   int64
	StudentName string
	Rows        []HistoryRow
}

// Writer writes PDFs into one output directory.
type Writer struct {
	dir    string
	logger *logger.Logger
	now    func() time.Time
}

func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{dir: dir, logger: log.Named("reports"), now: time.Now}
}

func (w *Writer) Dir() string { return w.dir }

// ReportCard writes the report card of one student for one period and
// returns the file path.
func (w *Writer) ReportCard(data ReportCardData) (string, error) {
	doc := newDocument("BOLETÍN DE CALIFICACIONES")

	doc.field("Estudiante:", data.StudentName)
	doc.field("Documento:", data.DocumentNumber)
	doc.field("Grupo:", data.GroupName)
	doc.field("Periodo:", data.PeriodName)
	doc.field("Docente:", data.TeacherName)
	doc.pdf.Ln(6)

	doc.header([]column{{"CATEGORÍA", 40}, {"LOGRO", 70}, {"VALORACIÓN", 25}, {"OBSERVACIONES", 45}})
	for i, row := range data.Rows {
		doc.row(i, []column{{row.Category, 40}, {row.Achievement, 70}, {row.Score, 25}, {row.Comments, 45}})
	}
	if len(data.Rows) == 0 {
		doc.note("No hay evaluaciones registradas en este periodo.")
	}

	if data.Observations != "" {
		doc.pdf.Ln(6)
		doc.field("Observaciones:", data.Observations)
	}

	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = w.now()
	}
	doc.footer(generated)

	return w.save(doc, ReportCardFilename(data.StudentID, data.StudentName, data.PeriodName))
}

// GroupRoster writes the student list of a group.
func (w *Writer) GroupRoster(data RosterData) (string, error) {
	doc := newDocument("LISTADO DE ESTUDIANTES")

	doc.field("Grupo:", data.GroupName)
	doc.field("Grado:", data.GradeName)
	doc.field("Director de grupo:", data.DirectorName)
	doc.field("Cupo:", fmt.Sprintf("%d / %d", len(data.Students), data.MaxCapacity))
	doc.pdf.Ln(6)

	doc.header([]column{{"#", 10}, {"NOMBRE", 70}, {"DOCUMENTO", 40}, {"CORREO", 60}})
	for i, s := range data.Students {
		doc.row(i, []column{{fmt.Sprint(i + 1), 10}, {s.Name, 70}, {s.Document, 40}, {s.Email, 60}})
	}
	if len(data.Students) == 0 {
		doc.note("El grupo no tiene estudiantes.")
	}
	doc.footer(w.now())

	return w.save(doc, RosterFilename(data.GroupName))
}

// AchievementHistory writes every evaluation of a student across periods.
func (w *Writer) AchievementHistory(data HistoryData) (string, error) {
	doc := newDocument("HISTORIAL DE LOGROS")

	doc.field("Estudiante:", data.StudentName)
	doc.pdf.Ln(6)

	doc.header([]column{{"PERIODO", 40}, {"LOGRO", 85}, {"VALORACIÓN", 25}, {"FECHA", 30}})
	for i, r := range data.Rows {
		doc.row(i, []column{{r.Period, 40}, {r.Achievement, 85}, {r.Score, 25}, {r.EvaluatedAt.Format("2006-01-02"), 30}})
	}
	if len(data.Rows) == 0 {
		doc.note("El estudiante no tiene evaluaciones.")
	}
	doc.footer(w.now())

	return w.save(doc, HistoryFilename(data.StudentID, data.StudentName))
}

func (w *Writer) save(doc *document, name string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("reports: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := doc.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("reports: write %s: %w", name, err)
	}
	w.logger.Infof("wrote %s", path)
	return path, nil
}
