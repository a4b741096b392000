package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const auditQueueName = "assignment-history"

type historyStore interface {
	Insert(ctx context.Context, entry *models.AssignmentHistory) error
	List(ctx context.Context, schoolID string, category models.AssignmentCategory, assignmentID string) ([]models.AssignmentHistory, error)
}

// auditSink receives assignment lifecycle events after commit.
type auditSink interface {
	LogCreate(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry)
	LogModification(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry)
	LogDeactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry)
	LogReactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry)
}

// AuditService appends assignment history. Writes go through a background
// queue when one is running and fall back to a synchronous insert otherwise.
// Failures are logged, never returned.
type AuditService struct {
	repo   historyStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService builds the service and its worker queue. Call Start to
// enable asynchronous writes.
func NewAuditService(repo historyStore, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue(auditQueueName, s.handle, cfg)
	return s
}

// Start launches the history workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered history entries.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// LogCreate records a new assignment.
func (s *AuditService) LogCreate(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.log(ctx, category, models.HistoryActionCreate, entry)
}

// LogModification records an in-place change.
func (s *AuditService) LogModification(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.log(ctx, category, models.HistoryActionModify, entry)
}

// LogDeactivation records a soft delete.
func (s *AuditService) LogDeactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.log(ctx, category, models.HistoryActionDeactivate, entry)
}

// LogReactivation records a restored assignment.
func (s *AuditService) LogReactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.log(ctx, category, models.HistoryActionReactivate, entry)
}

// ListHistory returns the history of one assignment, oldest first.
func (s *AuditService) ListHistory(ctx context.Context, claims *models.JWTClaims, category models.AssignmentCategory, assignmentID string) ([]models.AssignmentHistory, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment category")
	}
	entries, err := s.repo.List(ctx, claims.SchoolID, category, assignmentID)
	if err != nil {
		return nil, internalErr(err, "failed to list assignment history")
	}
	if entries == nil {
		entries = []models.AssignmentHistory{}
	}
	return entries, nil
}

func (s *AuditService) log(ctx context.Context, category models.AssignmentCategory, action models.HistoryAction, entry models.AuditEntry) {
	history := &models.AssignmentHistory{
		ID:           uuid.NewString(),
		SchoolID:     entry.SchoolID,
		Category:     category,
		AssignmentID: entry.AssignmentID,
		Action:       action,
		PreviousData: s.snapshot(entry.PreviousData),
		NewData:      s.snapshot(entry.NewData),
		ChangedBy:    entry.ChangedBy,
		ChangeReason: entry.ChangeReason,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.queue.Enqueue(jobs.Job{ID: history.ID, Type: string(action), Payload: history})
	if err == nil {
		return
	}
	s.logger.Debug("history queue unavailable, writing inline", zap.Error(err))
	if err := s.repo.Insert(context.WithoutCancel(ctx), history); err != nil {
		s.logger.Warn("failed to record assignment history",
			zap.String("assignment_id", history.AssignmentID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	history, ok := job.Payload.(*models.AssignmentHistory)
	if !ok {
		return errors.New("unexpected history payload")
	}
	return s.repo.Insert(ctx, history)
}

func (s *AuditService) snapshot(v interface{}) types.JSONText {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode history snapshot", zap.Error(err))
		return nil
	}
	return types.JSONText(raw)
}
