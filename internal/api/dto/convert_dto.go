package dto

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type ListConversionsRequest struct {
	Status       string `form:"status"`
	Category     string `form:"category"`
	TargetFormat string `form:"target_format"`
	PageSize     int    `form:"page_size"`
	Cursor       string `form:"cursor"`
}

type ListConversionsResponse struct {
	Conversions []ConversionDTO `json:"conversions"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

type ConversionDTO struct {
	JobID        string `json:"job_id"`
	SourceName   string `json:"source_name"`
	SourceFormat string `json:"source_format"`
	TargetFormat string `json:"target_format"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	FailureKind  string `json:"failure_kind,omitempty"`
	Detail       string `json:"detail,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	CreatedAt    string `json:"created_at"`
}
