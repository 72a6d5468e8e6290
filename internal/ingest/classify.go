package ingest

import (
	"strings"

	"github.com/vietddude/trendcore/internal/core/domain"
)

// filenameHints map lowercase filename substrings to export kinds, checked in order.
var filenameHints = []struct {
	substr string
	kind   domain.ExportKind
}{
	{"interest_over_time", domain.ExportInterestOverTime},
	{"interest_by_region", domain.ExportInterestByRegion},
	{"geographic", domain.ExportInterestByRegion},
	{"related_topics", domain.ExportRelatedTopics},
	{"related_queries", domain.ExportRelatedQueries},
	{"rising_queries", domain.ExportRisingQueries},
}

// classifyFilename returns the kind hinted by the filename, if any.
func classifyFilename(filename string) (domain.ExportKind, bool) {
	name := strings.ToLower(filename)
	for _, hint := range filenameHints {
		if strings.Contains(name, hint.substr) {
			return hint.kind, true
		}
	}
	return "", false
}

// classifyHeaders picks a kind from header names when the filename gives no hint.
// Region is checked before interest since by-region exports also carry an interest column.
func classifyHeaders(flags columnFlags) domain.ExportKind {
	switch {
	case flags.region:
		return domain.ExportInterestByRegion
	case flags.topic:
		return domain.ExportRelatedTopics
	case flags.rising && flags.query:
		return domain.ExportRisingQueries
	case flags.query:
		return domain.ExportRelatedQueries
	case flags.interest:
		return domain.ExportInterestOverTime
	default:
		return domain.ExportGenericTabular
	}
}

// Classify determines the export kind from a filename and header list.
func Classify(filename string, headers []string) domain.ExportKind {
	if kind, ok := classifyFilename(filename); ok {
		return kind
	}
	return classifyHeaders(scanHeaders(headers))
}

type columnFlags struct {
	interest bool
	region   bool
	topic    bool
	query    bool
	rising   bool
}

func scanHeaders(headers []string) columnFlags {
	var f columnFlags
	for _, h := range headers {
		h = strings.ToLower(h)
		f.interest = f.interest || strings.Contains(h, "interest")
		f.region = f.region || strings.Contains(h, "region")
		f.topic = f.topic || strings.Contains(h, "topic")
		f.query = f.query || strings.Contains(h, "query") || strings.Contains(h, "queries")
		f.rising = f.rising || strings.Contains(h, "rising")
	}
	return f
}
