package gate

import (
	"context"
	"fmt"
	"sync"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// JobPoster creates a job once the job-posting fee is paid.
type JobPoster struct {
	gate     *PaymentGate
	board    port.JobBoard
	validate *validator.Validate
	logger   *zap.Logger

	mu    sync.Mutex
	draft entity.JobDraft
}

func NewJobPoster(gate *PaymentGate, board port.JobBoard, logger *zap.Logger) *JobPoster {
	return &JobPoster{
		gate:     gate,
		board:    board,
		validate: validator.New(),
		logger:   logger.Named("JobPoster"),
	}
}

// SetDraft replaces the form contents.
func (p *JobPoster) SetDraft(draft entity.JobDraft) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = draft
}

// Draft returns the form contents.
func (p *JobPoster) Draft() entity.JobDraft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Submit posts the draft with the held payment id. Without one it fails with
// ErrPaymentRequired before any request is made. On success the id is spent
// and the draft cleared.
func (p *JobPoster) Submit(ctx context.Context) (*entity.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	paymentID, ok := p.gate.PaymentID()
	if !ok {
		return nil, ErrPaymentRequired
	}
	if err := p.validate.Struct(p.draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	job, err := p.board.CreateJob(ctx, entity.CreateJobRequest{JobDraft: p.draft, PaymentID: paymentID})
	if err != nil {
		p.logger.Warn("Job creation failed, keeping payment", zap.String("paymentID", paymentID), zap.Error(err))
		return nil, err
	}

	p.gate.Discard(paymentID)
	p.draft = entity.JobDraft{}
	p.logger.Info("Job created", zap.String("jobID", job.ID), zap.String("paymentID", paymentID))
	return job, nil
}
