package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkravchenko/servicehub-backend/internal/models"
)

func openAuction(endsAt time.Time) *models.Job {
	return &models.Job{
		Status:        models.JobStatusAuction,
		Mode:          models.JobModeAuction,
		AuctionEndsAt: &endsAt,
	}
}

func TestCheckBidAdmissible_StrictlyDecreasing(t *testing.T) {
	now := time.Now()
	job := openAuction(now.Add(time.Hour))

	// Первая ставка проходит без минимума.
	assert.NoError(t, checkBidAdmissible(job, nil, 500, now))

	lowest := 500.0
	assert.NoError(t, checkBidAdmissible(job, &lowest, 400, now))

	lowest = 400.0
	assert.ErrorIs(t, checkBidAdmissible(job, &lowest, 450, now), ErrBidNotLowEnough,
		"ставка выше минимума отклоняется")
	assert.ErrorIs(t, checkBidAdmissible(job, &lowest, 400, now), ErrBidNotLowEnough,
		"равная ставка отклоняется")
	assert.NoError(t, checkBidAdmissible(job, &lowest, 399, now))
}

func TestCheckBidAdmissible_AuctionClosed(t *testing.T) {
	now := time.Now()
	job := openAuction(now.Add(-time.Minute))
	lowest := 400.0

	assert.ErrorIs(t, checkBidAdmissible(job, &lowest, 300, now), ErrAuctionClosed)
}

func TestCheckBidAdmissible_JobAlreadyDecided(t *testing.T) {
	now := time.Now()
	job := openAuction(now.Add(time.Hour))
	job.Status = models.JobStatusProposalAccept

	assert.ErrorIs(t, checkBidAdmissible(job, nil, 300, now), ErrJobAlreadyDecided)
}
