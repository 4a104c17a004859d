package entity

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// JobDraft is the recruiter's unsaved job posting form.
type JobDraft struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"required"`
	Skills      []string         `json:"skills" validate:"dive,required"`
	Location    string           `json:"location"`
	Tags        string           `json:"tags,omitempty"`
	Budget      *decimal.Decimal `json:"budget,omitempty"`
}

// CreateJobRequest is the job creation payload; PaymentID spends a verified payment.
type CreateJobRequest struct {
	JobDraft
	PaymentID string `json:"payment_id"`
}

// Job is the backend's stored job.
type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	RecruiterID string `json:"recruiter_id,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
}

// PremiumActivation is the backend's answer to a premium activation.
type PremiumActivation struct {
	Payment VerifiedPayment `json:"payment"`
	Message string          `json:"message"`
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var w struct {
		ID          jsoniter.RawMessage `json:"id"`
		Title       string              `json:"title"`
		RecruiterID jsoniter.RawMessage `json:"recruiter_id"`
		PaymentID   jsoniter.RawMessage `json:"payment_id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	if j.ID, err = decodeID(w.ID); err != nil {
		return err
	}
	if j.RecruiterID, err = decodeID(w.RecruiterID); err != nil {
		return err
	}
	if j.PaymentID, err = decodeID(w.PaymentID); err != nil {
		return err
	}
	j.Title = w.Title
	return nil
}
