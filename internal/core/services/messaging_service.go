package services

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

// MessagingService manages the general (per patient) and direct (per patient
// and clinician) chat threads stored inside the RecordService document.
type MessagingService struct {
	records *RecordService
	log     *zap.Logger
}

func NewMessagingService(records *RecordService, logger *zap.Logger) *MessagingService {
	return &MessagingService{
		records: records,
		log:     logger,
	}
}

func (m *MessagingService) newMessage(sender string, senderRole domain.Role, text string, channel domain.Channel) domain.Message {
	return domain.Message{
		MessageID:  newID(),
		Timestamp:  m.records.now().UTC().Truncate(time.Second),
		Sender:     sender,
		SenderRole: senderRole,
		Text:       text,
		Channel:    channel,
	}
}

// AddGeneralMessage appends to the patient's care-team thread. It returns nil
// for blank text or an unknown hospital.
func (m *MessagingService) AddGeneralMessage(ctx context.Context, hospitalID, patient, sender string, senderRole domain.Role, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return nil, nil
	}

	msg := m.newMessage(sender, senderRole, text, domain.ChannelGeneral)
	msg.PatientUsername = patient
	h.Chats.General[patient] = append(h.Chats.General[patient], msg)

	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AddDirectMessage appends to the thread between patient and clinician. When
// the patient has assigned clinicians, clinician must be one of them.
func (m *MessagingService) AddDirectMessage(ctx context.Context, hospitalID, patient, clinician, sender string, senderRole domain.Role, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return nil, nil
	}

	assigned := r.assignedClinicians(hospitalID, patient)
	if len(assigned) > 0 && !slices.Contains(assigned, clinician) {
		m.log.Info("messaging: direct message refused, clinician not assigned",
			zap.String("hospital", hospitalID),
			zap.String("patient", patient),
			zap.String("clinician", clinician),
		)
		return nil, nil
	}

	msg := m.newMessage(sender, senderRole, text, domain.ChannelDirect)
	msg.PatientUsername = patient
	msg.ClinicianUsername = clinician

	threads, ok := h.Chats.Direct[patient]
	if !ok {
		threads = make(map[string][]domain.Message)
		h.Chats.Direct[patient] = threads
	}
	threads[clinician] = append(threads[clinician], msg)

	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetGeneralMessages returns the thread oldest first. A positive limit keeps
// only the most recent limit messages.
func (m *MessagingService) GetGeneralMessages(hospitalID, patient string, limit int) []domain.Message {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return []domain.Message{}
	}
	return orderedTail(h.Chats.General[patient], limit)
}

func (m *MessagingService) GetDirectMessages(hospitalID, patient, clinician string, limit int) []domain.Message {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return []domain.Message{}
	}
	return orderedTail(h.Chats.Direct[patient][clinician], limit)
}

func orderedTail(thread []domain.Message, limit int) []domain.Message {
	out := append([]domain.Message{}, thread...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ClearGeneralMessages empties an existing thread but keeps its key.
func (m *MessagingService) ClearGeneralMessages(ctx context.Context, hospitalID, patient string) (bool, error) {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	if _, ok := h.Chats.General[patient]; !ok {
		return false, nil
	}
	h.Chats.General[patient] = []domain.Message{}

	if err := r.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MessagingService) ClearDirectMessages(ctx context.Context, hospitalID, patient, clinician string) (bool, error) {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	threads, ok := h.Chats.Direct[patient]
	if !ok {
		return false, nil
	}
	if _, ok := threads[clinician]; !ok {
		return false, nil
	}
	threads[clinician] = []domain.Message{}

	if err := r.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListGeneralPatients returns patients with a general thread, most recently
// active first. Empty threads sort last.
func (m *MessagingService) ListGeneralPatients(hospitalID string) []string {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return []string{}
	}
	activity := make(map[string]time.Time, len(h.Chats.General))
	for patient, msgs := range h.Chats.General {
		activity[patient] = lastActivity(msgs)
	}
	return byRecentActivity(activity)
}

// ListDirectThreadsForClinician returns patients that have a direct thread
// with clinician, most recently active first.
func (m *MessagingService) ListDirectThreadsForClinician(hospitalID, clinician string) []string {
	r := m.records
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospital(hospitalID)
	if !ok {
		return []string{}
	}
	activity := map[string]time.Time{}
	for patient, threads := range h.Chats.Direct {
		if msgs, ok := threads[clinician]; ok {
			activity[patient] = lastActivity(msgs)
		}
	}
	return byRecentActivity(activity)
}

func lastActivity(msgs []domain.Message) time.Time {
	if len(msgs) == 0 {
		return time.Time{}
	}
	return msgs[len(msgs)-1].Timestamp
}

func byRecentActivity(activity map[string]time.Time) []string {
	out := make([]string, 0, len(activity))
	for name := range activity {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := activity[out[i]], activity[out[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i] < out[j]
	})
	return out
}
