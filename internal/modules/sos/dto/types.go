package dto

import "time"

type LocationOutput struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type StatusOutput struct {
	SessionID     string          `json:"session_id,omitempty"`
	Status        string          `json:"status"`
	Progress      float64         `json:"progress"`
	ActivatedAt   *time.Time      `json:"activated_at,omitempty"`
	LastLocation  *LocationOutput `json:"last_location"`
	CaptureActive bool            `json:"capture_active"`
}

type LocationInput struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type AlertOutput struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	Timestamp string          `json:"timestamp"`
	Location  *LocationOutput `json:"location"`
	Kind      string          `json:"type"`
}

type EvidenceQuery struct {
	IncludeImage bool
}

type EvidenceOutput struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Timestamp string          `json:"timestamp"`
	ImageSize int             `json:"image_size"`
	ImageData string          `json:"image,omitempty"`
	Location  *LocationOutput `json:"location"`
}

type ReportOutput struct {
	Path          string
	AlertCount    int
	EvidenceCount int
}
