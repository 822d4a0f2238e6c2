package models

type CheckGetResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	Response         string `json:"response,omitempty"`
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
}
