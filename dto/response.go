package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RunSummary aggregates the per-receipt outcomes of a pipeline run.
type RunSummary struct {
	Extracted int `json:"extracted"`
	Accepted  int `json:"accepted"`
	Matched   int `json:"matched"`
	Rendered  int `json:"rendered"`
}

// MatchResponse is the final response structure
type MatchResponse struct {
	Records     []MatchRecord `json:"records"`
	Summary     RunSummary    `json:"summary"`
	ProcessedAt string        `json:"processed_at"`
}
