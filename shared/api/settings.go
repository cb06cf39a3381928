package api

import "time"

type ListSettingsRequest struct {
	ListId        string `json:"list_id" validate:"required,max=100"`
	DisplayName   string `json:"display_name" validate:"max=100"`
	FromName      string `json:"from_name" validate:"max=40"`
	FromEmail     string `json:"from_email" validate:"omitempty,email"`
	SubjectPrefix string `json:"subject_prefix" validate:"max=20"`
}

type ListSettingsResponse struct {
	ListSettingsRequest
	LastUpdated time.Time `json:"last_updated"`
}
