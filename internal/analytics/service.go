// Package analytics aggregates onboarding and occupancy numbers for the
// admin dashboard. Read-only; everything here is derived from the same
// tables the core writes.
package analytics

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-onboarding/internal/models"
)

// Service handles analytics operations
type Service struct {
	db *bun.DB
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// PipelineAnalytics represents the application counts per lifecycle status
type PipelineAnalytics struct {
	TotalApplications int                              `json:"total_applications"`
	ByStatus          map[models.ApplicationStatus]int `json:"by_status"`
	DailyIntake       []DailyIntakeMetrics             `json:"daily_intake"`
}

// DailyIntakeMetrics contains application intake for a single day
type DailyIntakeMetrics struct {
	Date         string `json:"date"`
	Applications int    `json:"applications"`
}

// OccupancyAnalytics represents stall occupancy per market section
type OccupancyAnalytics struct {
	TotalStalls int                `json:"total_stalls"`
	Sections    []SectionOccupancy `json:"sections"`
}

// SectionOccupancy contains occupancy metrics for one section
type SectionOccupancy struct {
	SectionID   string `json:"section_id"`
	SectionCode string `json:"section_code"`
	SectionName string `json:"section_name"`
	Vacant      int    `json:"vacant"`
	Occupied    int    `json:"occupied"`
	Maintenance int    `json:"maintenance"`
}

// statusCountRow is the raw per-status aggregation from the store.
type statusCountRow struct {
	Status models.ApplicationStatus `bun:"status"`
	Count  int                      `bun:"count"`
}

// dailyIntakeRow is the raw per-day aggregation from the store.
type dailyIntakeRow struct {
	IntakeDate   string `bun:"intake_date"`
	Applications int    `bun:"applications"`
}

// occupancyRow is the raw per-section, per-status aggregation.
type occupancyRow struct {
	SectionID   string             `bun:"section_id"`
	SectionCode string             `bun:"section_code"`
	SectionName string             `bun:"section_name"`
	Status      models.StallStatus `bun:"status"`
	Count       int                `bun:"count"`
}

// GetPipelineAnalytics returns application counts per status plus the
// daily intake over the trailing window.
func (s *Service) GetPipelineAnalytics(ctx context.Context, since time.Time) (*PipelineAnalytics, error) {
	var statusRows []statusCountRow
	err := s.db.NewRaw(`
		SELECT status, COUNT(*) AS count
		FROM applications
		GROUP BY status`).
		Scan(ctx, &statusRows)
	if err != nil {
		return nil, err
	}

	result := &PipelineAnalytics{
		ByStatus:    make(map[models.ApplicationStatus]int, len(statusRows)),
		DailyIntake: []DailyIntakeMetrics{},
	}
	for _, row := range statusRows {
		result.ByStatus[row.Status] = row.Count
		result.TotalApplications += row.Count
	}

	var intakeRows []dailyIntakeRow
	err = s.db.NewRaw(`
		SELECT DATE(created_at) AS intake_date, COUNT(*) AS applications
		FROM applications
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY intake_date ASC`, since).
		Scan(ctx, &intakeRows)
	if err != nil {
		return nil, err
	}
	for _, row := range intakeRows {
		result.DailyIntake = append(result.DailyIntake, DailyIntakeMetrics{
			Date:         row.IntakeDate,
			Applications: row.Applications,
		})
	}

	return result, nil
}

// GetOccupancyAnalytics returns stall counts per section and status.
func (s *Service) GetOccupancyAnalytics(ctx context.Context) (*OccupancyAnalytics, error) {
	var rows []occupancyRow
	err := s.db.NewRaw(`
		SELECT
			sec.id AS section_id,
			sec.code AS section_code,
			sec.name AS section_name,
			st.status AS status,
			COUNT(*) AS count
		FROM stalls st
		JOIN sections sec ON sec.id = st.section_id
		GROUP BY sec.id, sec.code, sec.name, st.status
		ORDER BY sec.code ASC`).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	result := &OccupancyAnalytics{Sections: []SectionOccupancy{}}
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.SectionID]
		if !ok {
			i = len(result.Sections)
			index[row.SectionID] = i
			result.Sections = append(result.Sections, SectionOccupancy{
				SectionID:   row.SectionID,
				SectionCode: row.SectionCode,
				SectionName: row.SectionName,
			})
		}
		switch row.Status {
		case models.StallVacant:
			result.Sections[i].Vacant += row.Count
		case models.StallOccupied:
			result.Sections[i].Occupied += row.Count
		case models.StallMaintenance:
			result.Sections[i].Maintenance += row.Count
		}
		result.TotalStalls += row.Count
	}

	return result, nil
}
