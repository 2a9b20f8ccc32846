package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"arbiter/contexts/community-experience/reputation-ledger/domain/entities"
	domainerrors "arbiter/contexts/community-experience/reputation-ledger/domain/errors"
	"arbiter/contexts/community-experience/reputation-ledger/ports"

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
	return r.db.WithContext(ctx).AutoMigrate(&pointsModel{}, &creditModel{})
}

func (r *Repository) AddCredit(ctx context.Context, credit entities.Credit) (entities.Entry, error) {
	var entry entities.Entry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := creditModel{
			CreditID:  strings.TrimSpace(credit.CreditID),
			Account:   strings.TrimSpace(credit.Account),
			Amount:    credit.Amount,
			Reason:    credit.Reason,
			Reference: credit.Reference,
			CreatedAt: credit.CreatedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
				return domainerrors.ErrDuplicateCredit
			}
			return err
		}

		points := pointsModel{
			Account:   row.Account,
			Points:    row.Amount,
			UpdatedAt: row.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account"}},
			DoUpdates: clause.Assignments(map[string]any{
				"points":     gorm.Expr("reputation_points.points + ?", row.Amount),
				"updated_at": row.CreatedAt,
			}),
		}).Create(&points).Error; err != nil {
			return err
		}

		var stored pointsModel
		if err := tx.Where("account = ?", row.Account).First(&stored).Error; err != nil {
			return err
		}
		entry = stored.toEntity()
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateCredit) {
			return entities.Entry{}, err
		}
		return entities.Entry{}, r.logError("reputation_repo_add_credit_failed", err,
			"credit_id", credit.CreditID,
			"account", credit.Account,
		)
	}
	return entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, account string) (entities.Entry, bool, error) {
	var row pointsModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Entry{}, false, nil
		}
		return entities.Entry{}, false, r.logError("reputation_repo_get_entry_failed", err, "account", account)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListCredits(ctx context.Context, account string, limit int) ([]entities.Credit, error) {
	var rows []creditModel
	tx := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("reputation_repo_list_credits_failed", err, "account", account)
	}
	items := make([]entities.Credit, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Credit{
			CreditID:  row.CreditID,
			Account:   row.Account,
			Amount:    row.Amount,
			Reason:    row.Reason,
			Reference: row.Reference,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-experience/reputation-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("reputation repository operation failed", fields...)
	return err
}

type pointsModel struct {
	Account   string    `gorm:"column:account;primaryKey"`
	Points    int64     `gorm:"column:points"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (pointsModel) TableName() string {
	return "reputation_points"
}

func (m pointsModel) toEntity() entities.Entry {
	return entities.Entry{
		Account:   m.Account,
		Points:    m.Points,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type creditModel struct {
	CreditID  string    `gorm:"column:credit_id;primaryKey"`
	Account   string    `gorm:"column:account;index"`
	Amount    int64     `gorm:"column:amount"`
	Reason    string    `gorm:"column:reason"`
	Reference string    `gorm:"column:reference"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (creditModel) TableName() string {
	return "reputation_credits"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PointsRepository = (*Repository)(nil)
