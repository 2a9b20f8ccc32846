package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"

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
	return r.db.WithContext(ctx).AutoMigrate(
		&pollModel{},
		&pollOptionModel{},
		&pollTallyModel{},
		&pollVoteModel{},
		&pollBallotModel{},
	)
}

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll, result entities.PollResult) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := pollModel{
			PollID:          poll.PollID,
			Creator:         poll.Creator,
			Question:        poll.Question,
			StartsAt:        poll.StartsAt.UTC(),
			EndsAt:          poll.EndsAt.UTC(),
			Budget:          poll.Budget,
			TotalVotedStake: result.TotalVotedStake,
			CreatedAt:       poll.CreatedAt.UTC(),
			UpdatedAt:       poll.UpdatedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
				return domainerrors.ErrPollExists
			}
			return err
		}
		options := make([]pollOptionModel, 0, len(poll.Options))
		for position, option := range poll.Options {
			options = append(options, pollOptionModel{
				PollID:   poll.PollID,
				OptionID: option.OptionID,
				Label:    option.Label,
				Position: position,
			})
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}
		return saveResult(tx, result)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollExists) {
			return err
		}
		return r.logError("poll_repo_create_failed", err, "poll_id", poll.PollID)
	}
	return nil
}

// SavePoll persists the mutable window columns. Creator, options and budget
// are fixed at creation.
func (r *Repository) SavePoll(ctx context.Context, poll entities.Poll) error {
	res := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("poll_id = ?", poll.PollID).
		Updates(map[string]any{
			"starts_at":  poll.StartsAt.UTC(),
			"ends_at":    poll.EndsAt.UTC(),
			"updated_at": poll.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		return r.logError("poll_repo_save_failed", res.Error, "poll_id", poll.PollID)
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, bool, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, false, nil
		}
		return entities.Poll{}, false, r.logError("poll_repo_get_failed", err, "poll_id", pollID)
	}
	options, err := r.loadOptions(ctx, []string{row.PollID})
	if err != nil {
		return entities.Poll{}, false, err
	}
	return row.toEntity(options[row.PollID]), true, nil
}

func (r *Repository) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("poll_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_failed", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PollID)
	}
	options, err := r.loadOptions(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(options[row.PollID]))
	}
	return items, nil
}

func (r *Repository) GetResult(ctx context.Context, pollID string) (entities.PollResult, bool, error) {
	pollID = strings.TrimSpace(pollID)
	var poll pollModel
	err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).First(&poll).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PollResult{}, false, nil
		}
		return entities.PollResult{}, false, r.logError("poll_repo_get_result_failed", err, "poll_id", pollID)
	}

	var tallies []pollTallyModel
	if err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&tallies).Error; err != nil {
		return entities.PollResult{}, false, r.logError("poll_repo_get_tallies_failed", err, "poll_id", pollID)
	}
	var votes []pollVoteModel
	if err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&votes).Error; err != nil {
		return entities.PollResult{}, false, r.logError("poll_repo_get_votes_failed", err, "poll_id", pollID)
	}

	result := entities.NewPollResult(pollID)
	result.TotalVotedStake = poll.TotalVotedStake
	for _, tally := range tallies {
		result.Tally[tally.OptionID] = tally.Weight
	}
	for _, vote := range votes {
		record := entities.VoteRecord{
			Voter:    vote.Voter,
			OptionID: vote.OptionID,
			Weight:   vote.Weight,
			Claimed:  vote.Claimed,
			VotedAt:  vote.VotedAt.UTC(),
		}
		if vote.ClaimedAt != nil {
			claimedAt := vote.ClaimedAt.UTC()
			record.ClaimedAt = &claimedAt
		}
		result.Voters[vote.Voter] = record
	}
	return result, true, nil
}

func (r *Repository) SaveResult(ctx context.Context, result entities.PollResult) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveResult(tx, result)
	})
	if err != nil {
		return r.logError("poll_repo_save_result_failed", err, "poll_id", result.PollID)
	}
	return nil
}

func (r *Repository) SaveBallot(ctx context.Context, ballot entities.Ballot) error {
	selections, err := json.Marshal(ballot.Selections)
	if err != nil {
		return err
	}
	row := pollBallotModel{
		BallotID:      ballot.BallotID,
		PollID:        ballot.PollID,
		Voter:         ballot.Voter,
		Selections:    string(selections),
		Status:        string(ballot.Status),
		Weight:        ballot.Weight,
		FailureReason: ballot.FailureReason,
		CreatedAt:     ballot.CreatedAt.UTC(),
		UpdatedAt:     ballot.UpdatedAt.UTC(),
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ballot_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
	if err != nil {
		return r.logError("poll_repo_save_ballot_failed", err, "ballot_id", ballot.BallotID)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, bool, error) {
	var row pollBallotModel
	err := r.db.WithContext(ctx).Where("ballot_id = ?", strings.TrimSpace(ballotID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.logError("poll_repo_get_ballot_failed", err, "ballot_id", ballotID)
	}
	var selections []entities.Selection
	if err := json.Unmarshal([]byte(row.Selections), &selections); err != nil {
		return entities.Ballot{}, false, r.logError("poll_repo_decode_ballot_failed", err, "ballot_id", ballotID)
	}
	return entities.Ballot{
		BallotID:      row.BallotID,
		PollID:        row.PollID,
		Voter:         row.Voter,
		Selections:    selections,
		Status:        entities.BallotStatus(row.Status),
		Weight:        row.Weight,
		FailureReason: row.FailureReason,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, true, nil
}

func (r *Repository) loadOptions(ctx context.Context, pollIDs []string) (map[string][]entities.Option, error) {
	items := make(map[string][]entities.Option, len(pollIDs))
	if len(pollIDs) == 0 {
		return items, nil
	}
	var rows []pollOptionModel
	err := r.db.WithContext(ctx).
		Where("poll_id IN ?", pollIDs).
		Order("poll_id ASC").
		Order("position ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("poll_repo_load_options_failed", err)
	}
	for _, row := range rows {
		items[row.PollID] = append(items[row.PollID], entities.Option{OptionID: row.OptionID, Label: row.Label})
	}
	return items, nil
}

func saveResult(tx *gorm.DB, result entities.PollResult) error {
	for optionID, weight := range result.Tally {
		row := pollTallyModel{PollID: result.PollID, OptionID: optionID, Weight: weight}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "option_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	for _, record := range result.Voters {
		row := pollVoteModel{
			PollID:    result.PollID,
			Voter:     record.Voter,
			OptionID:  record.OptionID,
			Weight:    record.Weight,
			Claimed:   record.Claimed,
			VotedAt:   record.VotedAt.UTC(),
			ClaimedAt: record.ClaimedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "voter"}},
			DoUpdates: clause.AssignmentColumns([]string{"claimed", "claimed_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	res := tx.Model(&pollModel{}).
		Where("poll_id = ?", result.PollID).
		UpdateColumn("total_voted_stake", result.TotalVotedStake)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/poll-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

type pollModel struct {
	PollID          string    `gorm:"column:poll_id;primaryKey"`
	Creator         string    `gorm:"column:creator;index"`
	Question        string    `gorm:"column:question"`
	StartsAt        time.Time `gorm:"column:starts_at"`
	EndsAt          time.Time `gorm:"column:ends_at"`
	Budget          int64     `gorm:"column:budget"`
	TotalVotedStake int64     `gorm:"column:total_voted_stake"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func (m pollModel) toEntity(options []entities.Option) entities.Poll {
	return entities.Poll{
		PollID:    m.PollID,
		Creator:   m.Creator,
		Question:  m.Question,
		Options:   options,
		StartsAt:  m.StartsAt.UTC(),
		EndsAt:    m.EndsAt.UTC(),
		Budget:    m.Budget,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type pollOptionModel struct {
	PollID   string `gorm:"column:poll_id;primaryKey"`
	OptionID string `gorm:"column:option_id;primaryKey"`
	Label    string `gorm:"column:label"`
	Position int    `gorm:"column:position"`
}

func (pollOptionModel) TableName() string {
	return "poll_options"
}

type pollTallyModel struct {
	PollID   string `gorm:"column:poll_id;primaryKey"`
	OptionID string `gorm:"column:option_id;primaryKey"`
	Weight   int64  `gorm:"column:weight"`
}

func (pollTallyModel) TableName() string {
	return "poll_tallies"
}

type pollVoteModel struct {
	PollID    string     `gorm:"column:poll_id;primaryKey"`
	Voter     string     `gorm:"column:voter;primaryKey"`
	OptionID  string     `gorm:"column:option_id"`
	Weight    int64      `gorm:"column:weight"`
	Claimed   bool       `gorm:"column:claimed"`
	VotedAt   time.Time  `gorm:"column:voted_at"`
	ClaimedAt *time.Time `gorm:"column:claimed_at"`
}

func (pollVoteModel) TableName() string {
	return "poll_votes"
}

type pollBallotModel struct {
	BallotID      string    `gorm:"column:ballot_id;primaryKey"`
	PollID        string    `gorm:"column:poll_id;index"`
	Voter         string    `gorm:"column:voter"`
	Selections    string    `gorm:"column:selections"`
	Status        string    `gorm:"column:status"`
	Weight        int64     `gorm:"column:weight"`
	FailureReason string    `gorm:"column:failure_reason"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (pollBallotModel) TableName() string {
	return "poll_ballots"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
