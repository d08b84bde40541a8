package response_models

type ItineraryJobResponse struct {
	JobID              string           `json:"job_id"`
	Status             string           `json:"status"`
	FailureReason      string           `json:"failure_reason,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	ProcessingAttempts int              `json:"processing_attempts"`
	CreatedAt          string           `json:"created_at,omitempty"`
	CompletedAt        string           `json:"completed_at,omitempty"`
	ExpiresAt          string           `json:"expires_at,omitempty"`
	Result             *ItineraryResult `json:"result,omitempty"`
}

type SubmitJobResponse struct {
	JobID string `json:"job_id"`
}
