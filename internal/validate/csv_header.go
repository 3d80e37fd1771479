package validate

import "strings"

// CSVHeader returns true if every required column is present in the given
// CSV header row.
//
// Matching is case-insensitive and ignores surrounding whitespace. A UTF-8
// BOM on the first column is ignored, since government data exports often
// carry one.
func CSVHeader(header []string, requiredColumns ...string) bool {
	present := map[string]bool{}
	for i, column := range header {
		if i == 0 {
			column = strings.TrimPrefix(column, "\uFEFF")
		}
		present[strings.ToLower(strings.TrimSpace(column))] = true
	}

	for _, required := range requiredColumns {
		if !present[strings.ToLower(required)] {
			return false
		}
	}

	return true
}

// MissingCSVColumns returns the required columns absent from the header, in
// the order they were requested.
func MissingCSVColumns(header []string, requiredColumns ...string) []string {
	missing := []string{}
	for _, required := range requiredColumns {
		if !CSVHeader(header, required) {
			missing = append(missing, required)
		}
	}
	return missing
}
