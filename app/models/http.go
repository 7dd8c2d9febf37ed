package models

// Request body for POST /api/generate.
type GenerateRequest struct {
	UserPrompt string `json:"userPrompt"`
	Platform   string `json:"platform,omitempty"`
}

// FormulaResult is what the completion service returns for one prompt.
// It is never persisted.
type FormulaResult struct {
	Formula     string `json:"formula"`
	Explanation string `json:"explanation"`
}

type ExportRequest struct {
	Formula     string `json:"formula"`
	Explanation string `json:"explanation"`
	Platform    string `json:"platform,omitempty"`
}

// UsageResponse is served by GET /api/usage. Limit and Remaining are nil
// for unlimited plans.
type UsageResponse struct {
	Plan       string `json:"plan"`
	UsageCount int    `json:"usageCount"`
	Limit      *int   `json:"limit"`
	Remaining  *int   `json:"remaining"`
}
