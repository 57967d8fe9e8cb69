package doctors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

var doctorsTracer = otel.Tracer("docbook.internal.doctors")

// SeedResult reports the outcome of Seed.
type SeedResult struct {
	Seeded        int  `json:"seeded"`
	AlreadySeeded bool `json:"alreadySeeded"`
}

// Message renders the result for operators.
func (r SeedResult) Message() string {
	if r.AlreadySeeded {
		return "Doctors already seeded"
	}
	return fmt.Sprintf("Seeded %d doctors successfully", r.Seeded)
}

// Service exposes the doctor directory.
type Service struct {
	repo     Repository
	images   ImageURLResolver
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs a directory service. images may be nil, in which case
// every doctor's imageUrl is null.
func NewService(repo Repository, images ImageURLResolver, logger *logging.Logger) *Service {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		images:   images,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for calendar generation.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// SlotBook exposes the slot ownership operations to the appointment ledger.
func (s *Service) SlotBook() SlotBook {
	return s.repo
}

// List returns available doctors matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Doctor, error) {
	doctors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, d := range doctors {
		s.attachImage(ctx, d)
	}
	return doctors, nil
}

// Get returns the doctor with id or ErrDoctorNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachImage(ctx, doctor)
	return doctor, nil
}

// Summary returns the listing view of a doctor, or nil if it does not exist.
func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	doctor, err := s.Get(ctx, id)
	if errors.Is(err, ErrDoctorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Summary{Name: doctor.Name, Specialization: doctor.Specialization, ImageURL: doctor.ImageURL}, nil
}

// AvailableSlots returns the doctor's unbooked slots in chronological order.
// An unknown doctor has no slots.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string) ([]Slot, error) {
	doctor, err := s.repo.Get(ctx, doctorID)
	if errors.Is(err, ErrDoctorNotFound) {
		return []Slot{}, nil
	}
	if err != nil {
		return nil, err
	}
	return AvailableSlots(doctor.Slots), nil
}

// Specializations returns the sorted distinct specializations of all doctors.
func (s *Service) Specializations(ctx context.Context) ([]string, error) {
	return s.repo.Specializations(ctx)
}

// AvailableCount returns how many doctors are currently accepting bookings.
func (s *Service) AvailableCount(ctx context.Context) (int, error) {
	doctors, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return 0, err
	}
	return len(doctors), nil
}

// Create validates profile and registers an available doctor with a fresh
// slot calendar.
func (s *Service) Create(ctx context.Context, profile Profile) (*Doctor, error) {
	ctx, span := doctorsTracer.Start(ctx, "doctors.create")
	defer span.End()

	if err := s.validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	now := s.now().UTC()
	doctor := &Doctor{
		ID:             uuid.New().String(),
		Name:           profile.Name,
		Email:          profile.Email,
		Phone:          profile.Phone,
		Specialization: profile.Specialization,
		Experience:     profile.Experience,
		Education:      profile.Education,
		About:          profile.About,
		Fee:            profile.Fee,
		Address:        profile.Address,
		IsAvailable:    true,
		ImageKey:       profile.ImageKey,
		Slots:          GenerateSlotCalendar(now),
		CreatedAt:      now,
	}
	span.SetAttributes(
		attribute.String("docbook.doctor_id", doctor.ID),
		attribute.Int("docbook.slot_count", len(doctor.Slots)),
	)

	if err := s.repo.Create(ctx, doctor); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.attachImage(ctx, doctor)
	s.logger.Info("doctor created", "doctor_id", doctor.ID, "specialization", doctor.Specialization)
	return doctor, nil
}

// Seed installs DemoProfiles when the directory is empty.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	if count > 0 {
		return SeedResult{AlreadySeeded: true}, nil
	}
	var result SeedResult
	for _, profile := range DemoProfiles {
		if _, err := s.Create(ctx, profile); err != nil {
			return result, fmt.Errorf("doctors: seed %s: %w", profile.Name, err)
		}
		result.Seeded++
	}
	return result, nil
}

func (s *Service) attachImage(ctx context.Context, doctor *Doctor) {
	if s.images == nil || doctor.ImageKey == "" {
		doctor.ImageURL = nil
		return
	}
	url, err := s.images.ResolveImageURL(ctx, doctor.ImageKey)
	if err != nil {
		s.logger.Warn("image url unavailable", "doctor_id", doctor.ID, "error", err)
		doctor.ImageURL = nil
		return
	}
	doctor.ImageURL = url
}
