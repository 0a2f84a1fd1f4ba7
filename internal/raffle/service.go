package raffle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-onboarding/internal/application"
	appdb "ms-onboarding/internal/application/db"
	"ms-onboarding/internal/certificate"
	"ms-onboarding/internal/models"
	raffledb "ms-onboarding/internal/raffle/db"
)

// LockLayer is the per-stall fence against double triggers.
type LockLayer interface {
	Lock(stallID, raffleID string) (bool, error)
	Unlock(stallID, raffleID string) error
}

type KafkaPublisher interface {
	PublishStatusChanged(event models.TransitionEvent) error
	PublishStallAssigned(event models.AssignmentEvent) error
}

// Broadcaster pushes assignment results to live dashboard subscribers.
type Broadcaster interface {
	Broadcast(result models.AssignmentResult)
}

type Logger interface {
	Info(category, message string)
	Warn(category, message string)
	Error(category, message string)
}

// Service executes the stall assignment transaction. All six writes of
// an assignment (winner, losers, stall, raffle event, participants,
// certificate) happen inside one store transaction; any failure rolls
// the whole thing back and the stall stays vacant.
type Service struct {
	DB      *raffledb.DB
	Lock    LockLayer
	Kafka   KafkaPublisher
	Live    Broadcaster
	Issuer  *certificate.Issuer
	Picker  Picker
	Machine *application.StateMachine
	Logger  Logger
}

func NewService(db *raffledb.DB, lock LockLayer, kafka KafkaPublisher, live Broadcaster, issuer *certificate.Issuer, picker Picker, logger Logger) *Service {
	return &Service{
		DB:      db,
		Lock:    lock,
		Kafka:   kafka,
		Live:    live,
		Issuer:  issuer,
		Picker:  picker,
		Machine: application.NewStateMachine(),
		Logger:  logger,
	}
}

// Assign conducts the raffle for one vacant stall: select one winner
// uniformly from the eligible pool, occupy the stall, disqualify the
// losers, record the raffle, mint the certificate. Concurrent calls for
// the same stall resolve to exactly one success; every other caller
// gets ErrStallNoLongerVacant with zero writes.
func (s *Service) Assign(ctx context.Context, stallID string) (*models.AssignmentResult, error) {
	raffleID := uuid.NewString()

	ok, err := s.Lock.Lock(stallID, raffleID)
	if err != nil {
		return nil, fmt.Errorf("stall lock error: %w", err)
	}
	if !ok {
		// Another raffle run holds the stall right now.
		return nil, fmt.Errorf("stall %s is being raffled: %w", stallID, models.ErrStallNoLongerVacant)
	}
	defer func() {
		if err := s.Lock.Unlock(stallID, raffleID); err != nil {
			s.Logger.Warn("RAFFLE", fmt.Sprintf("failed to release lock for stall %s: %v", stallID, err))
		}
	}()

	var result models.AssignmentResult
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		stall, err := raffledb.GetStallTx(ctx, tx, stallID)
		if err != nil {
			return err
		}
		if stall.Status != models.StallVacant {
			return fmt.Errorf("stall %s is %s: %w", stallID, stall.Status, models.ErrStallNoLongerVacant)
		}

		pool, err := raffledb.CandidatePoolTx(ctx, tx)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return fmt.Errorf("stall %s: %w", stallID, models.ErrNoEligibleCandidates)
		}

		winnerID := SelectWinner(pool, s.Picker)
		now := time.Now().UTC()

		// Compare-and-swap on the vacant status; losing the race aborts
		// the transaction before any application is touched.
		occupied, err := raffledb.OccupyStallTx(ctx, tx, *stall, winnerID, now)
		if err != nil {
			return err
		}

		var winner models.Application
		loserIDs := make([]string, 0, len(pool)-1)
		for _, candidate := range pool {
			if candidate.ID == winnerID {
				candidate.AssignedStallID = stall.ID
				next, err := s.Machine.Transition(candidate, models.StatusWonRaffle, models.RaffleActor)
				if err != nil {
					return err
				}
				persisted, err := appdb.UpdateApplicationVersionedTx(ctx, tx, next)
				if err != nil {
					return err
				}
				winner = *persisted
			} else {
				next, err := s.Machine.Transition(candidate, models.StatusNotSelected, models.RaffleActor)
				if err != nil {
					return err
				}
				if _, err := appdb.UpdateApplicationVersionedTx(ctx, tx, next); err != nil {
					return err
				}
				loserIDs = append(loserIDs, candidate.ID)
			}
		}

		event := models.RaffleEvent{
			ID:               uuid.NewString(),
			StallID:          stall.ID,
			Status:           models.RaffleCompleted,
			ParticipantCount: len(pool),
			ConductedAt:      now,
		}
		if err := raffledb.InsertRaffleEventTx(ctx, tx, event); err != nil {
			return err
		}

		participants := make([]models.RaffleParticipant, 0, len(pool))
		for _, candidate := range pool {
			participants = append(participants, models.RaffleParticipant{
				ID:            uuid.NewString(),
				RaffleEventID: event.ID,
				ApplicationID: candidate.ID,
				IsWinner:      candidate.ID == winnerID,
			})
		}
		if err := raffledb.InsertParticipantsTx(ctx, tx, participants); err != nil {
			return err
		}

		section, err := raffledb.GetSectionTx(ctx, tx, stall.SectionID)
		if err != nil {
			return err
		}
		cert, err := s.Issuer.Issue(winner, *occupied, *section, now)
		if err != nil {
			return err
		}
		if err := raffledb.InsertCertificateTx(ctx, tx, cert); err != nil {
			return err
		}

		result = models.AssignmentResult{
			RaffleEvent:  event,
			WinnerID:     winnerID,
			LoserIDs:     loserIDs,
			Stall:        *occupied,
			Certificate:  cert,
			WinnerStatus: winner.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(result)
	s.Logger.Info("RAFFLE", fmt.Sprintf("stall %s assigned to %s (%d participants, certificate %s)",
		result.Stall.ID, result.WinnerID, result.RaffleEvent.ParticipantCount, result.Certificate.CertificateNumber))
	return &result, nil
}

// notify publishes the outbound events for a committed assignment.
// Delivery is best effort; the committed transaction is the source of
// truth and failures here are only logged.
func (s *Service) notify(result models.AssignmentResult) {
	now := result.RaffleEvent.ConductedAt

	if err := s.Kafka.PublishStatusChanged(models.TransitionEvent{
		ApplicationID: result.WinnerID,
		FromStatus:    models.StatusApprovedForRaffle,
		ToStatus:      models.StatusWonRaffle,
		Timestamp:     now,
	}); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish winner transition for %s: %v", result.WinnerID, err))
	}

	for _, loserID := range result.LoserIDs {
		if err := s.Kafka.PublishStatusChanged(models.TransitionEvent{
			ApplicationID: loserID,
			FromStatus:    models.StatusApprovedForRaffle,
			ToStatus:      models.StatusNotSelected,
			Timestamp:     now,
		}); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish loser transition for %s: %v", loserID, err))
		}
	}

	if err := s.Kafka.PublishStallAssigned(models.AssignmentEvent{
		ApplicationID: result.WinnerID,
		StallID:       result.Stall.ID,
		CertificateID: result.Certificate.ID,
		Timestamp:     now,
	}); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish assignment for stall %s: %v", result.Stall.ID, err))
	}

	s.Live.Broadcast(result)
}

// RaffleDetails returns the completed raffle for a stall with its
// participant rows.
func (s *Service) RaffleDetails(stallID string) (*models.RaffleEvent, []models.RaffleParticipant, error) {
	event, err := s.DB.GetRaffleEventByStall(stallID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.DB.GetParticipants(event.ID)
	if err != nil {
		return nil, nil, err
	}
	return event, participants, nil
}

// CertificateFor returns the certificate awarded to an application.
func (s *Service) CertificateFor(applicationID string) (*models.Certificate, error) {
	return s.DB.GetCertificateByApplication(applicationID)
}
