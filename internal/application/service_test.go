package application_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-onboarding/internal/application"
	"ms-onboarding/internal/models"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateApplication(app models.Application) (*models.Application, error) {
	args := m.Called(app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) GetApplicationByID(id string) (*models.Application, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) GetApplicationByNumber(number string) (*models.Application, error) {
	args := m.Called(number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) UpdateApplicationVersioned(app models.Application) (*models.Application, error) {
	args := m.Called(app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) GetDocumentsByApplication(applicationID string) ([]models.ApplicationDocument, error) {
	args := m.Called(applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApplicationDocument), args.Error(1)
}

func (m *MockDBLayer) UpdateDocument(doc models.ApplicationDocument) error {
	args := m.Called(doc)
	return args.Error(0)
}

func (m *MockDBLayer) ListApplicationsByStatus(status models.ApplicationStatus) ([]models.Application, error) {
	args := m.Called(status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

type MockKafkaPublisher struct {
	mock.Mock
}

func (m *MockKafkaPublisher) PublishStatusChanged(event models.TransitionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type noopLogger struct{}

func (noopLogger) Info(category, message string)  {}
func (noopLogger) Error(category, message string) {}

// Tests start here
func TestSubmit_PersistsAndPublishes(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	draft := &models.Application{ID: "app-1", Status: models.StatusDraft, Version: 1}

	mockDB.On("GetApplicationByID", "app-1").Return(draft, nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusPendingNotarization && a.Version == 1
	})).Return(&models.Application{ID: "app-1", Status: models.StatusPendingNotarization, Version: 2}, nil)
	mockKafka.On("PublishStatusChanged", mock.MatchedBy(func(e models.TransitionEvent) bool {
		return e.ApplicationID == "app-1" &&
			e.FromStatus == models.StatusDraft &&
			e.ToStatus == models.StatusPendingNotarization
	})).Return(nil)

	app, err := svc.Submit("app-1", applicantActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingNotarization, app.Status)

	mockDB.AssertExpectations(t)
	mockKafka.AssertExpectations(t)
}

func TestSubmit_IdempotentRetryPublishesNothing(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	pending := &models.Application{ID: "app-1", Status: models.StatusPendingNotarization, Version: 2}
	mockDB.On("GetApplicationByID", "app-1").Return(pending, nil)

	app, err := svc.Submit("app-1", applicantActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingNotarization, app.Status)

	// No versioned update, no event.
	mockDB.AssertNotCalled(t, "UpdateApplicationVersioned", mock.Anything)
	mockKafka.AssertNotCalled(t, "PublishStatusChanged", mock.Anything)
}

func TestSubmit_VersionConflictSurfaces(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	draft := &models.Application{ID: "app-1", Status: models.StatusDraft, Version: 1}
	mockDB.On("GetApplicationByID", "app-1").Return(draft, nil)
	mockDB.On("UpdateApplicationVersioned", mock.Anything).Return(nil, models.ErrVersionConflict)

	_, err := svc.Submit("app-1", applicantActor)
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	assert.True(t, models.Retryable(err))
	mockKafka.AssertNotCalled(t, "PublishStatusChanged", mock.Anything)
}

func TestRecordDocumentVerdict_AdminOnly(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	_, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictApproved, "", applicantActor)
	assert.ErrorIs(t, err, models.ErrUnauthorizedTransition)
	mockDB.AssertNotCalled(t, "GetApplicationByID", mock.Anything)
}

func TestRecordDocumentVerdict_RejectionMovesToPartiallyApproved(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	app := &models.Application{ID: "app-1", Status: models.StatusPendingApproval, Version: 3, CivilStatus: models.CivilSingle}
	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docsFor(*app), nil)
	mockDB.On("UpdateDocument", mock.MatchedBy(func(d models.ApplicationDocument) bool {
		return d.Kind == models.DocCedula && d.Verdict == models.VerdictRejected && d.Reason == "expired"
	})).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusPartiallyApproved
	})).Return(&models.Application{ID: "app-1", Status: models.StatusPartiallyApproved, Version: 4}, nil)
	mockKafka.On("PublishStatusChanged", mock.Anything).Return(nil)

	updated, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictRejected, "expired", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyApproved, updated.Status)
	mockDB.AssertExpectations(t)
}

func TestRecordDocumentVerdict_PostAwardReviewLandsOnDocumentsApproved(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	app := &models.Application{
		ID:              "app-1",
		Status:          models.StatusDocumentsSubmitted,
		AssignedStallID: "stall-1",
		Version:         7,
		CivilStatus:     models.CivilSingle,
	}

	// All documents but the cedula already approved.
	docs := docsFor(*app)
	for i := range docs {
		if docs[i].Kind != models.DocCedula {
			docs[i].Verdict = models.VerdictApproved
		}
	}

	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docs, nil)
	mockDB.On("UpdateDocument", mock.Anything).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusDocumentsApproved
	})).Return(&models.Application{ID: "app-1", Status: models.StatusDocumentsApproved, Version: 8}, nil)
	mockKafka.On("PublishStatusChanged", mock.Anything).Return(nil)

	updated, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictApproved, "", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDocumentsApproved, updated.Status)
}

func TestRecordDocumentVerdict_PostAwardReReviewLandsOnDocumentsApproved(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	// A stall holder looped back to pending_approval by a post-award
	// rejection; the re-review completing must land on
	// documents_approved, never back in the raffle pipeline.
	app := &models.Application{
		ID:              "app-1",
		Status:          models.StatusPendingApproval,
		AssignedStallID: "stall-1",
		Version:         9,
		CivilStatus:     models.CivilSingle,
	}

	docs := docsFor(*app)
	for i := range docs {
		if docs[i].Kind != models.DocCedula {
			docs[i].Verdict = models.VerdictApproved
		}
	}

	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docs, nil)
	mockDB.On("UpdateDocument", mock.Anything).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusDocumentsApproved && a.AssignedStallID == "stall-1"
	})).Return(&models.Application{ID: "app-1", Status: models.StatusDocumentsApproved, AssignedStallID: "stall-1", Version: 10}, nil)
	mockKafka.On("PublishStatusChanged", mock.Anything).Return(nil)

	updated, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictApproved, "", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDocumentsApproved, updated.Status)
	mockDB.AssertExpectations(t)
}

func TestRecordDocumentVerdict_UnchangedAggregateStillSerializes(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	// Most documents still unreviewed: the aggregate stays put, but the
	// application version must be bumped anyway so concurrent reviewers
	// serialize instead of both skipping the status write.
	app := &models.Application{ID: "app-1", Status: models.StatusPendingApproval, Version: 3, CivilStatus: models.CivilSingle}
	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docsFor(*app), nil)
	mockDB.On("UpdateDocument", mock.Anything).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusPendingApproval && a.Version == 3
	})).Return(&models.Application{ID: "app-1", Status: models.StatusPendingApproval, Version: 4}, nil)

	updated, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictApproved, "", adminActor)
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.Version)
	mockDB.AssertExpectations(t)
	mockKafka.AssertNotCalled(t, "PublishStatusChanged", mock.Anything)
}

func TestRecordDocumentVerdict_ConcurrentReviewerConflictSurfaces(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	app := &models.Application{ID: "app-1", Status: models.StatusPendingApproval, Version: 3, CivilStatus: models.CivilSingle}
	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docsFor(*app), nil)
	mockDB.On("UpdateDocument", mock.Anything).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.Anything).Return(nil, models.ErrVersionConflict)

	_, err := svc.RecordDocumentVerdict("app-1", models.DocCedula, models.VerdictApproved, "", adminActor)
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	assert.True(t, models.Retryable(err))
	mockKafka.AssertNotCalled(t, "PublishStatusChanged", mock.Anything)
}

func TestResubmitDocument_LoopsBackToPendingApproval(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	app := &models.Application{ID: "app-1", Status: models.StatusPartiallyApproved, Version: 4, CivilStatus: models.CivilSingle}

	docs := docsFor(*app)
	for i := range docs {
		if docs[i].Kind == models.DocCedula {
			docs[i].Verdict = models.VerdictRejected
			docs[i].Reason = "expired"
		}
	}

	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docs, nil)
	mockDB.On("UpdateDocument", mock.MatchedBy(func(d models.ApplicationDocument) bool {
		return d.Kind == models.DocCedula && d.Verdict == models.VerdictUnset && d.Ref == "ref-2"
	})).Return(nil)
	mockDB.On("UpdateApplicationVersioned", mock.MatchedBy(func(a models.Application) bool {
		return a.Status == models.StatusPendingApproval
	})).Return(&models.Application{ID: "app-1", Status: models.StatusPendingApproval, Version: 5}, nil)
	mockKafka.On("PublishStatusChanged", mock.Anything).Return(nil)

	updated, err := svc.ResubmitDocument("app-1", models.DocCedula, "ref-2", applicantActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, updated.Status)
	mockDB.AssertExpectations(t)
}

func TestResubmitDocument_StaysPutWhileRejectionsRemain(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	app := &models.Application{ID: "app-1", Status: models.StatusPartiallyApproved, Version: 4, CivilStatus: models.CivilSingle}

	docs := docsFor(*app)
	for i := range docs {
		if docs[i].Kind == models.DocCedula || docs[i].Kind == models.DocIDFront {
			docs[i].Verdict = models.VerdictRejected
			docs[i].Reason = "needs replacement"
		}
	}

	mockDB.On("GetApplicationByID", "app-1").Return(app, nil)
	mockDB.On("GetDocumentsByApplication", "app-1").Return(docs, nil)
	mockDB.On("UpdateDocument", mock.Anything).Return(nil)

	updated, err := svc.ResubmitDocument("app-1", models.DocCedula, "ref-2", applicantActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyApproved, updated.Status)
	mockDB.AssertNotCalled(t, "UpdateApplicationVersioned", mock.Anything)
	mockKafka.AssertNotCalled(t, "PublishStatusChanged", mock.Anything)
}

func TestCreateDraft(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	created := &models.Application{
		ID:                "app-1",
		ApplicationNumber: "042137",
		Status:            models.StatusDraft,
		Version:           1,
	}
	mockDB.On("CreateApplication", mock.MatchedBy(func(a models.Application) bool {
		return a.ApplicantName == "Maria Santos" && a.CivilStatus == models.CivilMarried
	})).Return(created, nil)

	app, err := svc.CreateDraft("Maria Santos", models.CivilMarried, false)
	require.NoError(t, err)
	assert.Equal(t, "042137", app.ApplicationNumber)
	mockDB.AssertExpectations(t)
}

func TestCreateDraft_StoreError(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaPublisher)
	svc := application.NewService(mockDB, mockKafka, noopLogger{})

	mockDB.On("CreateApplication", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := svc.CreateDraft("Maria Santos", models.CivilSingle, false)
	assert.Error(t, err)
}
