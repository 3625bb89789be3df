package domain

import "time"

type Channel string

const (
	ChannelGeneral Channel = "general"
	ChannelDirect  Channel = "direct"
)

type Message struct {
	MessageID         string    `json:"message_id"`
	Timestamp         time.Time `json:"timestamp"`
	Sender            string    `json:"sender"`
	SenderRole        Role      `json:"sender_role"`
	Text              string    `json:"text"`
	Channel           Channel   `json:"channel"`
	PatientUsername   string    `json:"patient_username"`
	ClinicianUsername string    `json:"clinician_username,omitempty"`
}
