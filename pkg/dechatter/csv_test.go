package dechatter

import (
	"strings"
)

func csvToSlice(csvString string) ([]Event, error) {
	return ReadCsv(strings.NewReader(csvString))
}

// eventsToCsv formats the events, skipping SYN and MSC_SCAN events.
func eventsToCsv(s []Event) string {
	csv := make([]string, 0, len(s))
	for i := range s {
		if eventToSkip(&s[i]) {
			continue
		}
		csv = append(csv, eventToCsvLine(s[i]))
	}
	return strings.Join(csv, "")
}
