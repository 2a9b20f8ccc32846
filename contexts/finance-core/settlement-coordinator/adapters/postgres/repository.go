package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"

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
	return r.db.WithContext(ctx).AutoMigrate(&settlementModel{})
}

func (r *Repository) SaveSettlement(ctx context.Context, settlement entities.Settlement) error {
	row := fromEntity(settlement)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "settlement_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
	if err != nil {
		return r.logError("settlement_repo_save_failed", err,
			"settlement_id", settlement.SettlementID,
			"status", string(settlement.Status),
		)
	}
	return nil
}

func (r *Repository) GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, bool, error) {
	var row settlementModel
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", strings.TrimSpace(settlementID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Settlement{}, false, nil
		}
		return entities.Settlement{}, false, r.logError("settlement_repo_get_failed", err, "settlement_id", settlementID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListSettlements(ctx context.Context, filter ports.SettlementFilter) ([]entities.Settlement, error) {
	tx := r.db.WithContext(ctx).Model(&settlementModel{})
	if filter.SourceRef != "" {
		tx = tx.Where("source_ref = ?", filter.SourceRef)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []settlementModel
	if err := tx.Order("created_at ASC").Order("settlement_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("settlement_repo_list_failed", err,
			"source_ref", filter.SourceRef,
			"status", string(filter.Status),
		)
	}
	items := make([]entities.Settlement, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "finance-core/settlement-coordinator",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("settlement repository operation failed", fields...)
	return err
}

type settlementModel struct {
	SettlementID  string     `gorm:"column:settlement_id;primaryKey"`
	Recipient     string     `gorm:"column:recipient;index"`
	Amount        int64      `gorm:"column:amount"`
	Memo          string     `gorm:"column:memo"`
	Source        string     `gorm:"column:source"`
	SourceRef     string     `gorm:"column:source_ref;index"`
	Status        string     `gorm:"column:status;index"`
	FailedPhase   string     `gorm:"column:failed_phase"`
	FailureReason string     `gorm:"column:failure_reason"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

func (settlementModel) TableName() string {
	return "settlements"
}

func fromEntity(item entities.Settlement) settlementModel {
	return settlementModel{
		SettlementID:  item.SettlementID,
		Recipient:     item.Recipient,
		Amount:        item.Amount,
		Memo:          item.Memo,
		Source:        item.Source,
		SourceRef:     item.SourceRef,
		Status:        string(item.Status),
		FailedPhase:   string(item.FailedPhase),
		FailureReason: item.FailureReason,
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
		CompletedAt:   item.CompletedAt,
	}
}

func (m settlementModel) toEntity() entities.Settlement {
	item := entities.Settlement{
		SettlementID:  m.SettlementID,
		Recipient:     m.Recipient,
		Amount:        m.Amount,
		Memo:          m.Memo,
		Source:        m.Source,
		SourceRef:     m.SourceRef,
		Status:        entities.SettlementStatus(m.Status),
		FailedPhase:   entities.SettlementPhase(m.FailedPhase),
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
	if m.CompletedAt != nil {
		completedAt := m.CompletedAt.UTC()
		item.CompletedAt = &completedAt
	}
	return item
}

var _ ports.SettlementRepository = (*Repository)(nil)
