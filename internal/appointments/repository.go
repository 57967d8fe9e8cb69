package appointments

import (
	"context"
	"sort"
	"sync"
)

// Repository persists appointments. Appointments are never deleted.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, appt *Appointment) error
	ListForPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	CountForPatient(ctx context.Context, patientID string) (int, error)
}

// InMemoryRepository keeps appointments in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Appointment
	seq   map[string]int
	next  int
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]*Appointment),
		seq:   make(map[string]int),
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, appt *Appointment) error {
	copied := *appt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[appt.ID] = &copied
	r.seq[appt.ID] = r.next
	r.next++
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *appt
	return &copied, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[appt.ID]; !ok {
		return ErrAppointmentNotFound
	}
	copied := *appt
	r.items[appt.ID] = &copied
	return nil
}

// ListForPatient returns the patient's appointments newest first.
func (r *InMemoryRepository) ListForPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Appointment{}
	for _, appt := range r.items {
		if appt.PatientID == patientID {
			copied := *appt
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *InMemoryRepository) CountForPatient(ctx context.Context, patientID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, appt := range r.items {
		if appt.PatientID == patientID {
			count++
		}
	}
	return count, nil
}
