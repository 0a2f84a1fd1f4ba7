package application

import (
	"fmt"
	"time"

	"ms-onboarding/internal/models"
)

type DBLayer interface {
	CreateApplication(app models.Application) (*models.Application, error)
	GetApplicationByID(id string) (*models.Application, error)
	GetApplicationByNumber(number string) (*models.Application, error)
	UpdateApplicationVersioned(app models.Application) (*models.Application, error)
	GetDocumentsByApplication(applicationID string) ([]models.ApplicationDocument, error)
	UpdateDocument(doc models.ApplicationDocument) error
	ListApplicationsByStatus(status models.ApplicationStatus) ([]models.Application, error)
}

type KafkaPublisher interface {
	PublishStatusChanged(event models.TransitionEvent) error
}

type Logger interface {
	Info(category, message string)
	Error(category, message string)
}

// Service drives the inbound application operations: it loads state,
// runs the state machine and ledger, persists with optimistic
// versioning, and publishes a transition event per successful move.
type Service struct {
	DB      DBLayer
	Kafka   KafkaPublisher
	Machine *StateMachine
	Ledger  *Ledger
	Logger  Logger
}

func NewService(db DBLayer, kafka KafkaPublisher, log Logger) *Service {
	return &Service{
		DB:      db,
		Kafka:   kafka,
		Machine: NewStateMachine(),
		Ledger:  NewLedger(),
		Logger:  log,
	}
}

// CreateDraft opens a new draft application for an applicant.
func (s *Service) CreateDraft(applicantName string, civilStatus models.CivilStatus, notarizationRequired bool) (*models.Application, error) {
	app, err := s.DB.CreateApplication(models.Application{
		ApplicantName:        applicantName,
		CivilStatus:          civilStatus,
		NotarizationRequired: notarizationRequired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	s.Logger.Info("APPLICATION", fmt.Sprintf("created draft %s (number %s)", app.ID, app.ApplicationNumber))
	return app, nil
}

// Submit moves a draft into pending_notarization.
func (s *Service) Submit(id string, actor models.Actor) (*models.Application, error) {
	return s.transition(id, models.StatusPendingNotarization, actor)
}

// Notarize confirms the notarization step and queues the application
// for document review.
func (s *Service) Notarize(id string, actor models.Actor) (*models.Application, error) {
	return s.transition(id, models.StatusPendingApproval, actor)
}

// ApproveForRaffle marks a fully reviewed application as eligible for
// stall raffles.
func (s *Service) ApproveForRaffle(id string, actor models.Actor) (*models.Application, error) {
	return s.transition(id, models.StatusApprovedForRaffle, actor)
}

// MarkDocumentsSubmitted records that a raffle winner has filed the
// post-award papers.
func (s *Service) MarkDocumentsSubmitted(id string, actor models.Actor) (*models.Application, error) {
	return s.transition(id, models.StatusDocumentsSubmitted, actor)
}

// ActivateAccount finishes onboarding for a winner whose post-award
// papers were approved.
func (s *Service) ActivateAccount(id string, actor models.Actor) (*models.Application, error) {
	return s.transition(id, models.StatusActivated, actor)
}

// GetByNumber is the public status lookup by 6-digit number.
func (s *Service) GetByNumber(number string) (*models.Application, error) {
	return s.DB.GetApplicationByNumber(number)
}

// GetDocuments returns the document rows for one application.
func (s *Service) GetDocuments(id string) ([]models.ApplicationDocument, error) {
	return s.DB.GetDocumentsByApplication(id)
}

// RecordDocumentVerdict stores one reviewer verdict and, when the
// aggregate outcome changes, executes the derived transition. The
// derived target depends on where the application sits: a completed
// pre-award review lands on approved, a completed post-award review on
// documents_approved.
func (s *Service) RecordDocumentVerdict(id string, kind models.DocumentKind, verdict models.Verdict, reason string, actor models.Actor) (*models.Application, error) {
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("only reviewers may record verdicts: %w", models.ErrUnauthorizedTransition)
	}

	app, err := s.DB.GetApplicationByID(id)
	if err != nil {
		return nil, err
	}
	docs, err := s.DB.GetDocumentsByApplication(id)
	if err != nil {
		return nil, err
	}

	updatedDocs, aggregate, err := s.Ledger.RecordVerdict(*app, docs, kind, verdict, reason)
	if err != nil {
		return nil, err
	}

	// A stall holder's completed review is always the post-award one,
	// including re-reviews after a rejection looped the application back
	// to pending_approval. Stall holders never re-enter the raffle
	// pipeline.
	target := aggregate
	if aggregate == models.StatusApproved && app.AssignedStallID != "" {
		target = models.StatusDocumentsApproved
	}

	next := *app
	if target != app.Status {
		next, err = s.Machine.Transition(*app, target, actor)
		if err != nil {
			return nil, err
		}
	}

	// Persist the verdict first, then the derived status; the versioned
	// update is the serialization point for concurrent reviewers.
	for i := range updatedDocs {
		if updatedDocs[i].Kind == kind {
			if err := s.DB.UpdateDocument(updatedDocs[i]); err != nil {
				return nil, fmt.Errorf("failed to store verdict for %s: %w", kind, err)
			}
		}
	}

	if target == app.Status {
		// Still a versioned write: concurrent reviewers reading the same
		// document snapshot serialize on the application version, so one
		// of them conflicts, retries, and sees the other's verdict when
		// recomputing the aggregate.
		persisted, err := s.DB.UpdateApplicationVersioned(*app)
		if err != nil {
			return nil, err
		}
		s.Logger.Info("APPLICATION", fmt.Sprintf("verdict %s on %s/%s, aggregate unchanged", verdict, id, kind))
		return persisted, nil
	}

	persisted, err := s.DB.UpdateApplicationVersioned(next)
	if err != nil {
		return nil, err
	}
	s.publish(app.Status, persisted)
	return persisted, nil
}

// ResubmitDocument replaces a rejected document and re-opens its review.
// Once no rejected documents remain, a partially approved application
// loops back to pending_approval.
func (s *Service) ResubmitDocument(id string, kind models.DocumentKind, newRef string, actor models.Actor) (*models.Application, error) {
	if actor.Role != models.RoleApplicant && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("role %s may not resubmit documents: %w", actor.Role, models.ErrUnauthorizedTransition)
	}

	app, err := s.DB.GetApplicationByID(id)
	if err != nil {
		return nil, err
	}
	docs, err := s.DB.GetDocumentsByApplication(id)
	if err != nil {
		return nil, err
	}

	updatedDocs, err := s.Ledger.Resubmit(*app, docs, kind, newRef)
	if err != nil {
		return nil, err
	}

	for i := range updatedDocs {
		if updatedDocs[i].Kind == kind {
			if err := s.DB.UpdateDocument(updatedDocs[i]); err != nil {
				return nil, fmt.Errorf("failed to store resubmission for %s: %w", kind, err)
			}
		}
	}

	if app.Status == models.StatusPartiallyApproved && !s.Ledger.HasUnresolvedRejection(*app, updatedDocs) {
		next, err := s.Machine.Transition(*app, models.StatusPendingApproval, actor)
		if err != nil {
			return nil, err
		}
		persisted, err := s.DB.UpdateApplicationVersioned(next)
		if err != nil {
			return nil, err
		}
		s.publish(app.Status, persisted)
		return persisted, nil
	}

	s.Logger.Info("APPLICATION", fmt.Sprintf("document %s resubmitted on %s", kind, id))
	return app, nil
}

func (s *Service) transition(id string, target models.ApplicationStatus, actor models.Actor) (*models.Application, error) {
	app, err := s.DB.GetApplicationByID(id)
	if err != nil {
		return nil, err
	}

	next, err := s.Machine.Transition(*app, target, actor)
	if err != nil {
		return nil, err
	}
	if next.Status == app.Status && next.Version == app.Version {
		// Idempotent retry, nothing was changed and nothing is published.
		return app, nil
	}

	persisted, err := s.DB.UpdateApplicationVersioned(next)
	if err != nil {
		return nil, err
	}
	s.publish(app.Status, persisted)
	return persisted, nil
}

func (s *Service) publish(from models.ApplicationStatus, app *models.Application) {
	event := models.TransitionEvent{
		ApplicationID: app.ID,
		FromStatus:    from,
		ToStatus:      app.Status,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.Kafka.PublishStatusChanged(event); err != nil {
		// Notification delivery is best effort; the transition stands.
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish transition %s -> %s for %s: %v", from, app.Status, app.ID, err))
	}
	s.Logger.Info("APPLICATION", fmt.Sprintf("%s: %s -> %s", app.ID, from, app.Status))
}
