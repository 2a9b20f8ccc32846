package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	domainerrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	"arbiter/contexts/marketplace/job-escrow/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&jobModel{}, &jobConfirmModel{}, &disputeOperationModel{})
}

func (r *Repository) CreateJob(ctx context.Context, job entities.Job) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toJobModel(job)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
				return domainerrors.ErrJobExists
			}
			return err
		}
		return saveConfirms(tx, job)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrJobExists) {
			return err
		}
		return r.logError("job_repo_create_failed", err, "job_id", job.JobID)
	}
	return nil
}

func (r *Repository) SaveJob(ctx context.Context, job entities.Job) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&jobModel{}).
			Where("job_id = ?", job.JobID).
			Updates(map[string]any{
				"started":         job.Started,
				"ended":           job.Ended,
				"dispute_poll_id": job.DisputePollID,
				"updated_at":      job.UpdatedAt.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainerrors.ErrJobNotFound
		}
		return saveConfirms(tx, job)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrJobNotFound) {
			return err
		}
		return r.logError("job_repo_save_failed", err, "job_id", job.JobID)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, jobID string) (entities.Job, bool, error) {
	var row jobModel
	err := r.db.WithContext(ctx).Where("job_id = ?", strings.TrimSpace(jobID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Job{}, false, nil
		}
		return entities.Job{}, false, r.logError("job_repo_get_failed", err, "job_id", jobID)
	}
	confirms, err := r.loadConfirms(ctx, []string{row.JobID})
	if err != nil {
		return entities.Job{}, false, err
	}
	return row.toEntity(confirms[row.JobID]), true, nil
}

func (r *Repository) ListJobs(ctx context.Context) ([]entities.Job, error) {
	var rows []jobModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("job_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("job_repo_list_failed", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.JobID)
	}
	confirms, err := r.loadConfirms(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Job, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(confirms[row.JobID]))
	}
	return items, nil
}

func (r *Repository) SaveOperation(ctx context.Context, operation entities.DisputeOperation) error {
	row := disputeOperationModel{
		OperationID:  operation.OperationID,
		Kind:         string(operation.Kind),
		JobID:        operation.JobID,
		Counterparty: operation.Counterparty,
		PollID:       operation.PollID,
		Status:       string(operation.Status),
		Detail:       operation.Detail,
		CreatedAt:    operation.CreatedAt.UTC(),
		UpdatedAt:    operation.UpdatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "operation_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
	if err != nil {
		return r.logError("job_repo_save_operation_failed", err, "operation_id", operation.OperationID)
	}
	return nil
}

func (r *Repository) GetOperation(ctx context.Context, operationID string) (entities.DisputeOperation, bool, error) {
	var row disputeOperationModel
	err := r.db.WithContext(ctx).Where("operation_id = ?", strings.TrimSpace(operationID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DisputeOperation{}, false, nil
		}
		return entities.DisputeOperation{}, false, r.logError("job_repo_get_operation_failed", err, "operation_id", operationID)
	}
	return entities.DisputeOperation{
		OperationID:  row.OperationID,
		Kind:         entities.OperationKind(row.Kind),
		JobID:        row.JobID,
		Counterparty: row.Counterparty,
		PollID:       row.PollID,
		Status:       entities.OperationStatus(row.Status),
		Detail:       row.Detail,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}, true, nil
}

func (r *Repository) HasPendingOperation(ctx context.Context, jobID string, kind entities.OperationKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&disputeOperationModel{}).
		Where("job_id = ? AND kind = ? AND status = ?", strings.TrimSpace(jobID), string(kind), string(entities.OperationPending)).
		Count(&count).Error
	if err != nil {
		return false, r.logError("job_repo_pending_operation_failed", err, "job_id", jobID, "kind", string(kind))
	}
	return count > 0, nil
}

func (r *Repository) loadConfirms(ctx context.Context, jobIDs []string) (map[string]map[string]entities.Confirm, error) {
	items := make(map[string]map[string]entities.Confirm, len(jobIDs))
	if len(jobIDs) == 0 {
		return items, nil
	}
	var rows []jobConfirmModel
	if err := r.db.WithContext(ctx).Where("job_id IN ?", jobIDs).Find(&rows).Error; err != nil {
		return nil, r.logError("job_repo_load_confirms_failed", err)
	}
	for _, row := range rows {
		if items[row.JobID] == nil {
			items[row.JobID] = make(map[string]entities.Confirm)
		}
		items[row.JobID][row.Party] = entities.Confirm{
			CreatorAccepted:  row.CreatorAccepted,
			CreatorCompleted: row.CreatorCompleted,
			PartyAccepted:    row.PartyAccepted,
			PartyCompleted:   row.PartyCompleted,
		}
	}
	return items, nil
}

// saveConfirms upserts every confirmation row of the job. Rows are never
// removed; a party that claimed once keeps its flags.
func saveConfirms(tx *gorm.DB, job entities.Job) error {
	for party, confirm := range job.Confirms {
		row := jobConfirmModel{
			JobID:            job.JobID,
			Party:            party,
			CreatorAccepted:  confirm.CreatorAccepted,
			CreatorCompleted: confirm.CreatorCompleted,
			PartyAccepted:    confirm.PartyAccepted,
			PartyCompleted:   confirm.PartyCompleted,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "party"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"creator_accepted",
				"creator_completed",
				"party_accepted",
				"party_completed",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "marketplace/job-escrow",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("job repository operation failed", fields...)
	return err
}

type jobModel struct {
	JobID         string    `gorm:"column:job_id;primaryKey"`
	Creator       string    `gorm:"column:creator;index"`
	Budget        int64     `gorm:"column:budget"`
	Started       bool      `gorm:"column:started"`
	Ended         bool      `gorm:"column:ended"`
	DisputePollID string    `gorm:"column:dispute_poll_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (jobModel) TableName() string {
	return "jobs"
}

func toJobModel(job entities.Job) jobModel {
	return jobModel{
		JobID:         job.JobID,
		Creator:       job.Creator,
		Budget:        job.Budget,
		Started:       job.Started,
		Ended:         job.Ended,
		DisputePollID: job.DisputePollID,
		CreatedAt:     job.CreatedAt.UTC(),
		UpdatedAt:     job.UpdatedAt.UTC(),
	}
}

func (m jobModel) toEntity(confirms map[string]entities.Confirm) entities.Job {
	if confirms == nil {
		confirms = make(map[string]entities.Confirm)
	}
	return entities.Job{
		JobID:         m.JobID,
		Creator:       m.Creator,
		Budget:        m.Budget,
		Confirms:      confirms,
		Started:       m.Started,
		Ended:         m.Ended,
		DisputePollID: m.DisputePollID,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type jobConfirmModel struct {
	JobID            string `gorm:"column:job_id;primaryKey"`
	Party            string `gorm:"column:party;primaryKey"`
	CreatorAccepted  bool   `gorm:"column:creator_accepted"`
	CreatorCompleted bool   `gorm:"column:creator_completed"`
	PartyAccepted    bool   `gorm:"column:party_accepted"`
	PartyCompleted   bool   `gorm:"column:party_completed"`
}

func (jobConfirmModel) TableName() string {
	return "job_confirms"
}

type disputeOperationModel struct {
	OperationID  string    `gorm:"column:operation_id;primaryKey"`
	Kind         string    `gorm:"column:kind"`
	JobID        string    `gorm:"column:job_id;index"`
	Counterparty string    `gorm:"column:counterparty"`
	PollID       string    `gorm:"column:poll_id"`
	Status       string    `gorm:"column:status"`
	Detail       string    `gorm:"column:detail"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (disputeOperationModel) TableName() string {
	return "job_dispute_operations"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.JobRepository = (*Repository)(nil)
var _ ports.OperationRepository = (*Repository)(nil)
