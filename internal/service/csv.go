package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bookdesk/internal/model"
)

// ErrInvalidFile marks a CSV that is rejected as a whole, before any row
// processing: wrong extension, unparseable content or missing required
// headers. Row-level problems never raise it; they become failed rows.
var ErrInvalidFile = errors.New("invalid file")

// cleanCSV parses and cleans tabular input. Steps, in order: parse,
// drop fully-empty columns and rows, verify required headers, project to
// the required columns, deduplicate on the natural-key columns keeping
// the first occurrence, and reject rows with any missing field. Every
// dropped duplicate and incomplete row is reported, not silently lost.
func cleanCSV(r io.Reader, required, key []string) (rows []map[string]string, failed []model.FailedRow, err error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	body := records[1:]

	// A column whose every cell is empty carries no data; dropping it
	// here means an all-empty required column fails the header check
	// below rather than producing a file's worth of failed rows.
	live := make(map[string]bool, len(headers))
	for _, rec := range body {
		for i, cell := range rec {
			if i < len(headers) && strings.TrimSpace(cell) != "" {
				live[headers[i]] = true
			}
		}
	}

	for _, h := range required {
		if !live[h] {
			return nil, nil, fmt.Errorf("%w: required header %q missing", ErrInvalidFile, h)
		}
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	seen := make(map[string]bool)
	for _, rec := range body {
		row := make(map[string]string, len(required))
		empty := true
		for _, h := range required {
			var cell string
			if i := index[h]; i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			row[h] = cell
			if cell != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		k := naturalKey(row, key)
		if seen[k] {
			failed = append(failed, model.FailedRow{Row: row, Reason: "duplicate of an earlier row"})
			continue
		}
		seen[k] = true

		if h, ok := missingField(row, required); ok {
			failed = append(failed, model.FailedRow{Row: row, Reason: "missing required field " + h})
			continue
		}
		rows = append(rows, row)
	}
	return rows, failed, nil
}

func naturalKey(row map[string]string, key []string) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = row[k]
	}
	return strings.Join(parts, "\x00")
}

func missingField(row map[string]string, required []string) (string, bool) {
	for _, h := range required {
		if row[h] == "" {
			return h, true
		}
	}
	return "", false
}
