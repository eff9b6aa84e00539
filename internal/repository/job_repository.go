package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

// Ошибки уровня репозитория.
var (
	ErrJobNotFound      = errors.New("job not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrBidNotFound      = errors.New("bid not found")

	// ErrJobAlreadyDecided возвращается, когда заявка уже вышла из
	// состояния приёма предложений: исполнитель выбран раньше.
	ErrJobAlreadyDecided = errors.New("job already decided")
)

// JobRepository отвечает за заявки и все составные переходы, затрагивающие
// заявку вместе с escrow. Каждый такой переход выполняется одной транзакцией
// с блокировкой строки заявки и проверкой версии.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository создаёт новый экземпляр.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create сохраняет новую заявку.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (client_id, category, description, status, service_type, urgency, mode, fixed_price, auction_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		job.ClientID,
		job.Category,
		job.Description,
		job.Status,
		job.ServiceType,
		job.Urgency,
		job.Mode,
		job.FixedPrice,
		job.AuctionEndsAt,
	).Scan(&job.ID, &job.Version, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("job repository: insert job %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", id, ErrJobNotFound)
}

// JobFilterParams параметры фильтрации списка заявок.
type JobFilterParams struct {
	Status        string
	Category      string
	Mode          string
	ClientID      *uuid.UUID
	ProviderID    *uuid.UUID
	ParticipantID *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// List возвращает заявки по фильтру для read-only потребителей.
func (r *JobRepository) List(ctx context.Context, params JobFilterParams) ([]models.Job, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.Status != "" {
		add("status = $%d", params.Status)
	}
	if params.Category != "" {
		add("category = $%d", params.Category)
	}
	if params.Mode != "" {
		add("mode = $%d", params.Mode)
	}
	if params.ClientID != nil {
		add("client_id = $%d", *params.ClientID)
	}
	if params.ProviderID != nil {
		add("provider_id = $%d", *params.ProviderID)
	}
	if params.ParticipantID != nil {
		args = append(args, *params.ParticipantID)
		conditions = append(conditions, fmt.Sprintf("(client_id = $%d OR provider_id = $%d)", len(args), len(args)))
	}
	if params.CreatedFrom != nil {
		add("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		add("created_at <= $%d", *params.CreatedTo)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT * FROM jobs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), len(args)-1, len(args))

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("job repository: list %w", err)
	}
	return jobs, nil
}

// TransitionParams параметры простого перехода статуса.
type TransitionParams struct {
	JobID       uuid.UUID
	ActorID     *uuid.UUID
	FromStatus  string
	ToStatus    string
	Version     int
	ScheduledAt *time.Time
}

// Transition выполняет одиночный переход статуса заявки с проверкой версии.
// Используется для переходов без участия escrow (прогресс работ, отмена
// до создания escrow).
func (r *JobRepository) Transition(ctx context.Context, p TransitionParams) (*models.Job, error) {
	var updated models.Job
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		job, err := lockJob(ctx, tx, p.JobID)
		if err != nil {
			return err
		}
		if job.Version != p.Version {
			return common.ErrConcurrentModification
		}

		query := `
			UPDATE jobs
			SET status = $2, scheduled_at = COALESCE($3, scheduled_at), version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`
		if err := tx.GetContext(ctx, &updated, query, p.JobID, p.ToStatus, p.ScheduledAt); err != nil {
			return fmt.Errorf("job repository: transition %w", err)
		}

		return addJobHistory(ctx, tx, p.JobID, p.ActorID, "status_transition", p.FromStatus, p.ToStatus)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AcceptProposalParams параметры принятия предложения.
type AcceptProposalParams struct {
	JobID      uuid.UUID
	ProposalID uuid.UUID
	ClientID   uuid.UUID
	CustodyID  string
	Version    int
}

// AcceptProposal атомарно принимает предложение: переводит заявку в
// proposta_aceita, отклоняет остальные ожидающие предложения и создаёт
// escrow в статусе held. Любая гонка разрешается в пользу ровно одного
// вызова.
func (r *JobRepository) AcceptProposal(ctx context.Context, p AcceptProposalParams) (*models.Job, *models.Escrow, error) {
	var (
		updated models.Job
		escrow  models.Escrow
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		job, err := lockJob(ctx, tx, p.JobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive {
			return ErrJobAlreadyDecided
		}
		if job.Version != p.Version {
			return common.ErrConcurrentModification
		}

		var proposal models.Proposal
		err = tx.GetContext(ctx, &proposal, `
			SELECT * FROM proposals WHERE id = $1 AND job_id = $2 AND status = $3 FOR UPDATE
		`, p.ProposalID, p.JobID, models.ProposalStatusPending)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProposalNotFound
		}
		if err != nil {
			return fmt.Errorf("job repository: lock proposal %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1
		`, proposal.ID, models.ProposalStatusAccepted); err != nil {
			return fmt.Errorf("job repository: accept proposal %w", err)
		}

		// Остальные ожидающие предложения становятся недействующими.
		if _, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = $3, updated_at = NOW()
			WHERE job_id = $1 AND id <> $2 AND status = $4
		`, p.JobID, proposal.ID, models.ProposalStatusRejected, models.ProposalStatusPending); err != nil {
			return fmt.Errorf("job repository: reject pending proposals %w", err)
		}

		if err := tx.GetContext(ctx, &escrow, `
			INSERT INTO escrow (job_id, client_id, provider_id, amount, status, custody_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		`, p.JobID, p.ClientID, proposal.ProviderID, proposal.Price, models.EscrowStatusHeld, p.CustodyID); err != nil {
			if common.IsUniqueViolation(err) {
				return ErrJobAlreadyDecided
			}
			return fmt.Errorf("job repository: insert escrow %w", err)
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE jobs
			SET status = $2, provider_id = $3, escrow_id = $4, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, p.JobID, models.JobStatusProposalAccept, proposal.ProviderID, escrow.ID); err != nil {
			return fmt.Errorf("job repository: accept transition %w", err)
		}

		return addJobHistory(ctx, tx, p.JobID, &p.ClientID, "proposal_accepted", job.Status, updated.Status)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, &escrow, nil
}

// AcceptBidParams параметры принятия минимальной ставки аукциона.
// BidID — ставка, под сумму которой процессор подтвердил удержание;
// если к моменту блокировки минимум сменился, принятие отклоняется.
type AcceptBidParams struct {
	JobID     uuid.UUID
	BidID     uuid.UUID
	ClientID  uuid.UUID
	CustodyID string
	Version   int
}

// AcceptBid атомарно завершает аукцион: сверяет минимальную ставку с
// ожидаемой, создаёт escrow на её сумму и переводит заявку в
// proposta_aceita.
func (r *JobRepository) AcceptBid(ctx context.Context, p AcceptBidParams) (*models.Job, *models.Escrow, *models.Bid, error) {
	var (
		updated models.Job
		escrow  models.Escrow
		bid     models.Bid
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		job, err := lockJob(ctx, tx, p.JobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusAuction {
			return ErrJobAlreadyDecided
		}
		if job.Version != p.Version {
			return common.ErrConcurrentModification
		}

		err = tx.GetContext(ctx, &bid, `
			SELECT * FROM bids WHERE job_id = $1 ORDER BY amount ASC, created_at ASC LIMIT 1
		`, p.JobID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBidNotFound
		}
		if err != nil {
			return fmt.Errorf("job repository: lowest bid %w", err)
		}
		// Между чтением минимума и удержанием средств могла пройти новая
		// ставка: сумма escrow разошлась бы с подтверждённым удержанием.
		if bid.ID != p.BidID {
			return common.ErrConcurrentModification
		}

		if err := tx.GetContext(ctx, &escrow, `
			INSERT INTO escrow (job_id, client_id, provider_id, amount, status, custody_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		`, p.JobID, p.ClientID, bid.ProviderID, bid.Amount, models.EscrowStatusHeld, p.CustodyID); err != nil {
			if common.IsUniqueViolation(err) {
				return ErrJobAlreadyDecided
			}
			return fmt.Errorf("job repository: insert escrow %w", err)
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE jobs
			SET status = $2, provider_id = $3, escrow_id = $4, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, p.JobID, models.JobStatusProposalAccept, bid.ProviderID, escrow.ID); err != nil {
			return fmt.Errorf("job repository: accept bid transition %w", err)
		}

		return addJobHistory(ctx, tx, p.JobID, &p.ClientID, "bid_accepted", job.Status, updated.Status)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return &updated, &escrow, &bid, nil
}

// Complete атомарно подтверждает выполнение: заявка pagamento_pendente →
// concluido, escrow held → released.
func (r *JobRepository) Complete(ctx context.Context, jobID, clientID uuid.UUID, version int) (*models.Job, *models.Escrow, error) {
	var (
		updated models.Job
		escrow  models.Escrow
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		job, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Version != version {
			return common.ErrConcurrentModification
		}

		if err := finalizeEscrow(ctx, tx, jobID, models.EscrowStatusHeld, models.EscrowStatusReleased, &escrow); err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE jobs SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING *
		`, jobID, models.JobStatusCompleted); err != nil {
			return fmt.Errorf("job repository: complete transition %w", err)
		}

		return addJobHistory(ctx, tx, jobID, &clientID, "completed", job.Status, updated.Status)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, &escrow, nil
}

// OpenDispute атомарно открывает спор: заявка → em_disputa, escrow →
// disputed, запись спора создаётся в той же транзакции.
func (r *JobRepository) OpenDispute(ctx context.Context, d *models.Dispute, version int) (*models.Job, error) {
	var updated models.Job
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		job, err := lockJob(ctx, tx, d.JobID)
		if err != nil {
			return err
		}
		if job.Version != version {
			return common.ErrConcurrentModification
		}

		var escrow models.Escrow
		if err := finalizeEscrow(ctx, tx, d.JobID, models.EscrowStatusHeld, models.EscrowStatusDisputed, &escrow); err != nil {
			return err
		}
		d.EscrowID = escrow.ID

		if err := tx.GetContext(ctx, d, `
			INSERT INTO disputes (job_id, escrow_id, initiator_id, reason, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		`, d.JobID, d.EscrowID, d.InitiatorID, d.Reason, models.DisputeStatusOpen); err != nil {
			if common.IsUniqueViolation(err) {
				return common.ErrAlreadyExists
			}
			return fmt.Errorf("job repository: insert dispute %w", err)
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE jobs SET status = $2, dispute_id = $3, version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING *
		`, d.JobID, models.JobStatusInDispute, d.ID); err != nil {
			return fmt.Errorf("job repository: dispute transition %w", err)
		}

		return addJobHistory(ctx, tx, d.JobID, &d.InitiatorID, "dispute_opened", job.Status, updated.Status)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ResolveDisputeParams параметры разрешения спора.
type ResolveDisputeParams struct {
	DisputeID     uuid.UUID
	DecidedBy     string
	Outcome       string
	Justification string
	ResolvedBy    uuid.UUID
	JobVersion    int
}

// ResolveDispute атомарно разрешает спор: спор → resolved, escrow →
// released|refunded, заявка → concluido|cancelado. Это единственный путь,
// выводящий escrow из состояния disputed.
func (r *JobRepository) ResolveDispute(ctx context.Context, p ResolveDisputeParams) (*models.Job, *models.Escrow, *models.Dispute, error) {
	var (
		updated models.Job
		escrow  models.Escrow
		dispute models.Dispute
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, p.DisputeID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDisputeNotFound
		}
		if err != nil {
			return fmt.Errorf("job repository: lock dispute %w", err)
		}
		if dispute.Status != models.DisputeStatusOpen {
			return ErrDisputeAlreadyResolved
		}

		job, err := lockJob(ctx, tx, dispute.JobID)
		if err != nil {
			return err
		}
		if job.Version != p.JobVersion {
			return common.ErrConcurrentModification
		}

		escrowStatus := models.EscrowStatusReleased
		jobStatus := models.JobStatusCompleted
		if p.Outcome == models.DisputeOutcomeRefundRequester {
			escrowStatus = models.EscrowStatusRefunded
			jobStatus = models.JobStatusCancelled
		}

		if err := finalizeEscrow(ctx, tx, dispute.JobID, models.EscrowStatusDisputed, escrowStatus, &escrow); err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &dispute, `
			UPDATE disputes
			SET status = $2, decided_by = $3, outcome = $4, justification = $5, resolved_by = $6, resolved_at = NOW()
			WHERE id = $1
			RETURNING *
		`, p.DisputeID, models.DisputeStatusResolved, p.DecidedBy, p.Outcome, p.Justification, p.ResolvedBy); err != nil {
			return fmt.Errorf("job repository: resolve dispute %w", err)
		}

		if err := tx.GetContext(ctx, &updated, `
			UPDATE jobs SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING *
		`, dispute.JobID, jobStatus); err != nil {
			return fmt.Errorf("job repository: resolution transition %w", err)
		}

		return addJobHistory(ctx, tx, dispute.JobID, &p.ResolvedBy, "dispute_resolved", job.Status, updated.Status)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return &updated, &escrow, &dispute, nil
}

// lockJob блокирует строку заявки до конца транзакции.
func lockJob(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := tx.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: lock job %w", err)
	}
	return &job, nil
}

// finalizeEscrow переводит escrow заявки из fromStatus в toStatus.
// Нулевое число затронутых строк означает, что escrow уже покинул
// ожидаемое состояние.
func finalizeEscrow(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID, fromStatus, toStatus string, out *models.Escrow) error {
	err := tx.GetContext(ctx, out, `
		UPDATE escrow
		SET status = $3, released_at = CASE WHEN $3 IN ('released', 'refunded') THEN NOW() ELSE released_at END
		WHERE job_id = $1 AND status = $2
		RETURNING *
	`, jobID, fromStatus, toStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEscrowAlreadyFinalized
	}
	if err != nil {
		return fmt.Errorf("job repository: finalize escrow %w", err)
	}
	return nil
}

// addJobHistory добавляет запись в журнал переходов заявки.
func addJobHistory(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID, userID *uuid.UUID, action string, oldValue, newValue interface{}) error {
	oldJSON, _ := json.Marshal(oldValue)
	newJSON, _ := json.Marshal(newValue)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO job_history (job_id, user_id, action, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5)
	`, jobID, userID, action, oldJSON, newJSON); err != nil {
		return fmt.Errorf("job repository: insert history %w", err)
	}
	return nil
}
