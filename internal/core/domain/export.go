package domain

// ExportKind is the detected structural category of an uploaded trend export.
type ExportKind string

const (
	ExportInterestOverTime ExportKind = "interest_over_time"
	ExportInterestByRegion ExportKind = "interest_by_region"
	ExportRelatedTopics    ExportKind = "related_topics"
	ExportRelatedQueries   ExportKind = "related_queries"
	ExportRisingQueries    ExportKind = "rising_queries"
	ExportGenericTabular   ExportKind = "generic_tabular"
	ExportJSON             ExportKind = "json"
)

// ExportKinds lists every export kind in display order.
var ExportKinds = []ExportKind{
	ExportInterestOverTime,
	ExportInterestByRegion,
	ExportRelatedTopics,
	ExportRelatedQueries,
	ExportRisingQueries,
	ExportGenericTabular,
	ExportJSON,
}

// IsTrend reports whether k is one of the recognized trend export layouts.
func (k ExportKind) IsTrend() bool {
	switch k {
	case ExportInterestOverTime,
		ExportInterestByRegion,
		ExportRelatedTopics,
		ExportRelatedQueries,
		ExportRisingQueries:
		return true
	}
	return false
}

// Row is one record of an export, keyed by header name.
// Tabular values are strings; JSON exports carry the decoded document under "data".
type Row map[string]any

// ExportSummary holds counts and column flags derived from a parsed export.
type ExportSummary struct {
	TotalRows   int      `json:"total_rows"`
	Columns     []string `json:"columns"`
	HasInterest bool     `json:"has_interest"`
	HasRegion   bool     `json:"has_region"`
	HasTopic    bool     `json:"has_topic"`
	HasQuery    bool     `json:"has_query"`
}

// ParsedExport is the normalized form of one uploaded file.
// It is built once by the ingestor and not modified afterwards.
type ParsedExport struct {
	Filename string        `json:"filename"`
	Kind     ExportKind    `json:"kind"`
	Headers  []string      `json:"headers"`
	Rows     []Row         `json:"rows"`
	Summary  ExportSummary `json:"summary"`
}
