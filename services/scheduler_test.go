package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tarif-dev/Forge/models"
	"github.com/Tarif-dev/Forge/protocols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// puts a fixture into the approved-but-unpaid position a crashed or failed
// settlement leaves behind
func strandSettlement(t *testing.T, db *gorm.DB, f *fixture) {
	t.Helper()
	now := time.Now()
	score := 88
	require.NoError(t, db.Model(&models.Submission{}).
		Where("id = ?", f.submission.ID).
		Updates(map[string]interface{}{"status": models.SubmissionStatusApproved, "score": score, "evaluated_at": now}).Error)
	require.NoError(t, db.Model(&models.Bounty{}).
		Where("id = ?", f.bounty.ID).
		Updates(map[string]interface{}{"status": models.BountyStatusCompleted, "completed_at": now}).Error)
}

func TestSweepUnsettledRedrivesStuckPayouts(t *testing.T) {
	db := newTestDB(t)
	proc := &stubProcessor{protocol: models.ProtocolX402}
	svc := newTestService(t, db, &stubEvaluator{}, proc)
	f := seedFixture(t, db, models.ProtocolX402, 70)
	strandSettlement(t, db, f)

	svc.SweepUnsettled(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&proc.calls))
	assert.EqualValues(t, 1, countPayments(t, db, f.bounty.ID, models.PaymentStatusSuccess))

	var submission models.Submission
	require.NoError(t, db.First(&submission, "id = ?", f.submission.ID).Error)
	assert.Equal(t, models.SubmissionStatusPaid, submission.Status)

	// a second sweep finds nothing to do
	svc.SweepUnsettled(context.Background())
	assert.EqualValues(t, 1, atomic.LoadInt32(&proc.calls))
}

func TestSweepUnsettledSkipsTraditionalRail(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &stubEvaluator{}, protocols.NewSolanaProcessor())
	f := seedFixture(t, db, models.ProtocolSolana, 70)
	strandSettlement(t, db, f)

	svc.SweepUnsettled(context.Background())

	// never settles without a human-supplied signature, so the sweep must
	// not even attempt it
	assert.EqualValues(t, 0, countPayments(t, db, f.bounty.ID, models.PaymentStatusFailed))

	var submission models.Submission
	require.NoError(t, db.First(&submission, "id = ?", f.submission.ID).Error)
	assert.Equal(t, models.SubmissionStatusApproved, submission.Status)
}

func TestSweepUnsettledIgnoresHealthyRows(t *testing.T) {
	db := newTestDB(t)
	proc := &stubProcessor{protocol: models.ProtocolX402}
	svc := newTestService(t, db, &stubEvaluator{}, proc)

	// open bounty with a merely submitted submission is not stuck
	seedFixture(t, db, models.ProtocolX402, 70)

	svc.SweepUnsettled(context.Background())
	assert.EqualValues(t, 0, atomic.LoadInt32(&proc.calls))
}
