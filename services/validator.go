package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"schoolRecords/shared"
)

type FileType string

const (
	FileTypeStudents FileType = "students"
	FileTypeTeachers FileType = "teachers"
)

var expectedHeaders = map[FileType][]string{
	FileTypeStudents: {"Document_type", "Document_number", "Last_name", "First_name", "Email"},
	FileTypeTeachers: {"Document_type", "Document_number", "Last_name", "First_name", "Email", "Specialty"},
}

// ValidateCSVStructure checks that the file parses, has data rows and
// carries the header of the expected type. Header names match ignoring case.
func ValidateCSVStructure(filePath string, expectedType FileType) error {
	_, err := readImportFile(filePath, expectedType)
	return err
}

func readImportFile(filePath string, expectedType FileType) ([][]string, error) {
	const op = "ValidateCSVStructure"

	records, err := readCSV(filePath)
	if err != nil {
		return nil, shared.WrapError("import", op, shared.ErrValidation,
			"the CSV file could not be read, check that it is a valid CSV file", err)
	}
	if len(records) == 0 {
		return nil, shared.Invalid("import", op, "the file is empty, send a file with data")
	}
	if len(records) == 1 {
		return nil, shared.Invalid("import", op, "the file only contains headers, add data rows")
	}

	want := expectedHeaders[expectedType]
	if !validateHeaders(records[0], want) {
		return nil, shared.Invalid("import", op,
			"wrong %s file structure.\n\nExpected columns:\n%v\n\nGot:\n%v", expectedType, want, records[0])
	}
	return records, nil
}

func validateHeaders(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, exp := range expected {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff")), exp) {
			return false
		}
	}

	return true
}

func readCSV(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// rowError prefixes the message of err with the CSV line it came from.
func rowError(line int, err error) error {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return fmt.Errorf("line %d: %w", line, err)
	}
	return shared.WrapError("import", "Import", de.Kind, fmt.Sprintf("line %d: %s", line, de.Message), err)
}
