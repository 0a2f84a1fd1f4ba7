// Package stalls administers market sections and their physical stalls:
// creation from a section's capacity, vacancy listings, and maintenance
// flagging. Occupancy itself belongs to the raffle package.
package stalls

import (
	"fmt"

	"github.com/google/uuid"

	"ms-onboarding/internal/models"
)

type DBLayer interface {
	CreateSectionWithStalls(section models.Section, stallIDs []string) (*models.Section, []models.Stall, error)
	GetStallByID(id string) (*models.Stall, error)
	GetSectionByID(id string) (*models.Section, error)
	ListStalls(sectionID string, status models.StallStatus) ([]models.Stall, error)
	SetMaintenanceVersioned(stall models.Stall, underMaintenance bool) (*models.Stall, error)
}

type Logger interface {
	Info(category, message string)
}

type Service struct {
	DB     DBLayer
	Logger Logger
}

func NewService(db DBLayer, logger Logger) *Service {
	return &Service{DB: db, Logger: logger}
}

// CreateSection registers a market section and generates one vacant
// stall per unit of capacity, numbered {code}-1 .. {code}-{capacity}.
func (s *Service) CreateSection(code, name string, capacity int) (*models.Section, []models.Stall, error) {
	if code == "" || name == "" {
		return nil, nil, fmt.Errorf("section code and name are required: %w", models.ErrInvalidTransition)
	}
	if capacity < 1 {
		return nil, nil, fmt.Errorf("section capacity must be at least 1: %w", models.ErrInvalidTransition)
	}

	stallIDs := make([]string, capacity)
	for i := range stallIDs {
		stallIDs[i] = uuid.NewString()
	}

	section, stallRows, err := s.DB.CreateSectionWithStalls(models.Section{
		ID:       uuid.NewString(),
		Code:     code,
		Name:     name,
		Capacity: capacity,
	}, stallIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create section %s: %w", code, err)
	}

	s.Logger.Info("STALLS", fmt.Sprintf("created section %s (%s) with %d stalls", code, name, capacity))
	return section, stallRows, nil
}

// ListStalls returns stalls filtered by section and status.
func (s *Service) ListStalls(sectionID string, status models.StallStatus) ([]models.Stall, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown stall status %q: %w", status, models.ErrNotFound)
	}
	return s.DB.ListStalls(sectionID, status)
}

// GetStall returns one stall.
func (s *Service) GetStall(id string) (*models.Stall, error) {
	return s.DB.GetStallByID(id)
}

// SetMaintenance flips a vacant stall in or out of maintenance.
// Occupied stalls cannot be flagged; their occupancy is owned by the
// assignment transaction.
func (s *Service) SetMaintenance(id string, underMaintenance bool) (*models.Stall, error) {
	stall, err := s.DB.GetStallByID(id)
	if err != nil {
		return nil, err
	}
	if stall.Status == models.StallOccupied {
		return nil, fmt.Errorf("stall %s is occupied: %w", id, models.ErrStallNoLongerVacant)
	}

	updated, err := s.DB.SetMaintenanceVersioned(*stall, underMaintenance)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("STALLS", fmt.Sprintf("stall %s maintenance=%t", id, underMaintenance))
	return updated, nil
}
