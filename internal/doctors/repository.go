package doctors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SlotBook owns the booked flag of doctor slots. ClaimSlot is a
// compare-and-swap on an unbooked (date, time) slot; ReleaseSlot unbooks every
// slot matching (date, time) and is a no-op for unknown doctors.
type SlotBook interface {
	ClaimSlot(ctx context.Context, doctorID, date, time string) error
	ReleaseSlot(ctx context.Context, doctorID, date, time string) error
}

// Repository persists doctor profiles and their slot calendars.
type Repository interface {
	SlotBook
	List(ctx context.Context, filter ListFilter) ([]*Doctor, error)
	Get(ctx context.Context, id string) (*Doctor, error)
	Create(ctx context.Context, doctor *Doctor) error
	Specializations(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

type slotKey struct {
	date string
	time string
}

type memoryRecord struct {
	doctor Doctor
	index  map[slotKey]int
}

// InMemoryRepository keeps doctors in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	doctors map[string]*memoryRecord
	order   []string
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		doctors: make(map[string]*memoryRecord),
	}
}

// Create stores a copy of doctor.
func (r *InMemoryRepository) Create(ctx context.Context, doctor *Doctor) error {
	if doctor == nil || strings.TrimSpace(doctor.ID) == "" {
		return fmt.Errorf("doctors: create: id required")
	}
	record := &memoryRecord{doctor: cloneDoctor(doctor), index: make(map[slotKey]int, len(doctor.Slots))}
	for i, slot := range record.doctor.Slots {
		key := slotKey{date: slot.Date, time: slot.Time}
		if _, exists := record.index[key]; exists {
			return fmt.Errorf("%w: %s %s", ErrDuplicateSlot, slot.Date, slot.Time)
		}
		record.index[key] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.doctors[doctor.ID]; exists {
		return fmt.Errorf("doctors: create: id %s already exists", doctor.ID)
	}
	r.doctors[doctor.ID] = record
	r.order = append(r.order, doctor.ID)
	return nil
}

// Get returns a copy of the doctor including its slot calendar.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	doctor := cloneDoctor(&record.doctor)
	return &doctor, nil
}

// List returns matching doctors in creation order, without slots.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Doctor, 0, len(r.order))
	for _, id := range r.order {
		doctor := r.doctors[id].doctor
		if !filter.Matches(&doctor) {
			continue
		}
		doctor.Slots = nil
		out = append(out, &doctor)
	}
	return out, nil
}

// Specializations returns the sorted distinct specializations of all doctors.
func (r *InMemoryRepository) Specializations(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, record := range r.doctors {
		seen[record.doctor.Specialization] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for spec := range seen {
		out = append(out, spec)
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of stored doctors.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.doctors), nil
}

// ClaimSlot marks the (date, time) slot booked if it exists and is free.
func (r *InMemoryRepository) ClaimSlot(ctx context.Context, doctorID, date, time string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	i, ok := record.index[slotKey{date: date, time: time}]
	if !ok || record.doctor.Slots[i].IsBooked {
		return ErrSlotUnavailable
	}
	record.doctor.Slots[i].IsBooked = true
	return nil
}

// ReleaseSlot marks the (date, time) slot unbooked.
func (r *InMemoryRepository) ReleaseSlot(ctx context.Context, doctorID, date, time string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.doctors[doctorID]
	if !ok {
		return nil
	}
	if i, ok := record.index[slotKey{date: date, time: time}]; ok {
		record.doctor.Slots[i].IsBooked = false
	}
	return nil
}

// Matches reports whether doctor passes the filter. Only available doctors
// match. A search term matches when every whitespace-separated word occurs in
// the name, ignoring case; otherwise the specialization must match exactly.
func (f ListFilter) Matches(doctor *Doctor) bool {
	if !doctor.IsAvailable {
		return false
	}
	if terms := f.SearchTerms(); len(terms) > 0 {
		name := strings.ToLower(doctor.Name)
		for _, term := range terms {
			if !strings.Contains(name, term) {
				return false
			}
		}
		return true
	}
	if spec := strings.TrimSpace(f.Specialization); spec != "" {
		return doctor.Specialization == spec
	}
	return true
}

// SearchTerms returns the lower-cased words of the search term.
func (f ListFilter) SearchTerms() []string {
	return strings.Fields(strings.ToLower(f.Search))
}

func cloneDoctor(d *Doctor) Doctor {
	out := *d
	if d.Slots != nil {
		out.Slots = append([]Slot(nil), d.Slots...)
	}
	if d.ImageURL != nil {
		url := *d.ImageURL
		out.ImageURL = &url
	}
	return out
}
