package ports

import (
	"context"
	"time"
)

type PainAlertEvent struct {
	AlertID   string    `json:"alert_id"`
	Hospital  string    `json:"hospital"`
	PatientID string    `json:"patient_id"`
	Timestamp time.Time `json:"timestamp"`
}

type AlertPublisher interface {
	PublishPainAlert(ctx context.Context, evt PainAlertEvent) error
}

// FeedbackGenerator produces supportive feedback text for a patient entry.
type FeedbackGenerator interface {
	Generate(ctx context.Context, notes string, mood, pain, appetite int) (string, error)
}
