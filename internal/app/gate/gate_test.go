package gate

import (
	"context"
	"errors"
	"testing"

	"paygate/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBoard struct {
	jobs      []entity.CreateJobRequest
	activated []string
	err       error
}

func (b *stubBoard) CreateJob(_ context.Context, req entity.CreateJobRequest) (*entity.Job, error) {
	b.jobs = append(b.jobs, req)
	if b.err != nil {
		return nil, b.err
	}
	return &entity.Job{ID: "j_1", Title: req.Title, PaymentID: req.PaymentID}, nil
}

func (b *stubBoard) ActivatePremium(_ context.Context, paymentID string) (*entity.PremiumActivation, error) {
	b.activated = append(b.activated, paymentID)
	if b.err != nil {
		return nil, b.err
	}
	return &entity.PremiumActivation{Payment: entity.VerifiedPayment{ID: paymentID, Consumed: true}, Message: "premium activated"}, nil
}

func draft() entity.JobDraft {
	return entity.JobDraft{Title: "Go engineer", Description: "Build payment rails", Skills: []string{"go"}}
}

func TestJobPosterRequiresPayment(t *testing.T) {
	board := &stubBoard{}
	p := NewJobPoster(NewPaymentGate(), board, zap.NewNop())
	p.SetDraft(draft())

	_, err := p.Submit(context.Background())
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Equal(t, "complete payment first", err.Error())
	assert.Empty(t, board.jobs)
}

func TestJobPosterSpendsPaymentOnce(t *testing.T) {
	board := &stubBoard{}
	g := NewPaymentGate()
	g.Hold(entity.VerifiedPayment{ID: "p_1", TxHash: "0x123"})
	p := NewJobPoster(g, board, zap.NewNop())
	p.SetDraft(draft())

	job, err := p.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j_1", job.ID)
	require.Len(t, board.jobs, 1)
	assert.Equal(t, "p_1", board.jobs[0].PaymentID)

	_, ok := g.PaymentID()
	assert.False(t, ok)
	assert.Equal(t, entity.JobDraft{}, p.Draft())

	p.SetDraft(draft())
	_, err = p.Submit(context.Background())
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Len(t, board.jobs, 1)
}

func TestJobPosterKeepsPaymentOnFailure(t *testing.T) {
	board := &stubBoard{err: errors.New("payment already used")}
	g := NewPaymentGate()
	g.Hold(entity.VerifiedPayment{ID: "p_1"})
	p := NewJobPoster(g, board, zap.NewNop())
	p.SetDraft(draft())

	_, err := p.Submit(context.Background())
	assert.Error(t, err)
	id, ok := g.PaymentID()
	assert.True(t, ok)
	assert.Equal(t, "p_1", id)
	assert.Equal(t, draft(), p.Draft())
}

func TestJobPosterValidatesDraft(t *testing.T) {
	board := &stubBoard{}
	g := NewPaymentGate()
	g.Hold(entity.VerifiedPayment{ID: "p_1"})
	p := NewJobPoster(g, board, zap.NewNop())

	_, err := p.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDraft)
	assert.Empty(t, board.jobs)
}

func TestPremiumActivator(t *testing.T) {
	board := &stubBoard{}
	g := NewPaymentGate()
	a := NewPremiumActivator(g, board, zap.NewNop())

	_, err := a.Activate(context.Background())
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Empty(t, board.activated)

	g.Hold(entity.VerifiedPayment{ID: "p_9"})
	res, err := a.Activate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "premium activated", res.Message)
	assert.Equal(t, []string{"p_9"}, board.activated)
	_, ok := g.PaymentID()
	assert.False(t, ok)
}

func TestDiscardKeepsNewerPayment(t *testing.T) {
	g := NewPaymentGate()
	g.Hold(entity.VerifiedPayment{ID: "p_1"})
	g.Hold(entity.VerifiedPayment{ID: "p_2"})
	g.Discard("p_1")
	id, ok := g.PaymentID()
	assert.True(t, ok)
	assert.Equal(t, "p_2", id)
}
