package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParsedQuestion is one well-formed row from an import file.
type ParsedQuestion struct {
	Question      string
	Options       []string
	CorrectAnswer int
	Category      string
}

// ParseQuestionsCSV reads question rows from r. Expected columns:
// question, option_a, option_b, option_c, option_d, correct_answer, category.
// A header row is detected and skipped. Rows missing required columns or
// with an unrecognized correct answer are skipped, not imported partially.
// Returns the parsed questions and the number of skipped rows.
func ParseQuestionsCSV(r io.Reader) ([]ParsedQuestion, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are validated per-record below
	reader.TrimLeadingSpace = true

	var questions []ParsedQuestion
	skipped := 0
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV: %w", err)
		}

		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}

		q, ok := parseQuestionRow(record)
		if !ok {
			skipped++
			continue
		}
		questions = append(questions, q)
	}

	return questions, skipped, nil
}

func parseQuestionRow(record []string) (ParsedQuestion, bool) {
	if len(record) < 6 {
		return ParsedQuestion{}, false
	}

	question := strings.TrimSpace(record[0])
	options := []string{
		strings.TrimSpace(record[1]),
		strings.TrimSpace(record[2]),
		strings.TrimSpace(record[3]),
		strings.TrimSpace(record[4]),
	}

	if question == "" {
		return ParsedQuestion{}, false
	}
	for _, opt := range options {
		if opt == "" {
			return ParsedQuestion{}, false
		}
	}

	correct, ok := parseCorrectAnswer(record[5])
	if !ok {
		return ParsedQuestion{}, false
	}

	category := ""
	if len(record) > 6 {
		category = strings.TrimSpace(record[6])
	}
	if category == "" {
		category = "General"
	}

	return ParsedQuestion{
		Question:      question,
		Options:       options,
		CorrectAnswer: correct,
		Category:      category,
	}, true
}

// parseCorrectAnswer maps the letters A-D (case-insensitive) to the option
// indices 0-3. Bare digits 0-3 are accepted as well.
func parseCorrectAnswer(field string) (int, bool) {
	switch strings.ToUpper(strings.TrimSpace(field)) {
	case "A", "0":
		return 0, true
	case "B", "1":
		return 1, true
	case "C", "2":
		return 2, true
	case "D", "3":
		return 3, true
	}
	return 0, false
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), "question")
}
