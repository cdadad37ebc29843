package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
)

func newCampaignFlowFixture(campaigns ...*models.Campaign) (CampaignFlow, *fakeCampaignRepo, *fakeContactRepo, *fakeTaskQueue) {
	campaignRepo := newFakeCampaignRepo(campaigns...)
	contactRepo := newFakeContactRepo()
	customerRepo := newFakeCustomerRepo(activeCustomer(1, "inst-1"))
	queue := &fakeTaskQueue{}
	flow := NewCampaignFlow(campaignRepo, contactRepo, customerRepo, queue, nil)
	return flow, campaignRepo, contactRepo, queue
}

// racingContactRepo hides the first phone lookup, mimicking a concurrent
// writer inserting the same phone between the read and the upsert
type racingContactRepo struct {
	*fakeContactRepo
	hideFirstLookup bool
}

func (r *racingContactRepo) ByPhones(ctx context.Context, customerID uint, phones []string) ([]*models.Contact, error) {
	if r.hideFirstLookup {
		r.hideFirstLookup = false
		return nil, nil
	}
	return r.fakeContactRepo.ByPhones(ctx, customerID, phones)
}

func TestCreateCampaign_Validation(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	t.Run("missing customer is unauthenticated", func(t *testing.T) {
		flow, _, _, _ := newCampaignFlowFixture()

		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:    "No tenant",
			Content: "hello",
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsUnauthenticated(err))
	})

	t.Run("empty audience is rejected", func(t *testing.T) {
		flow, _, _, _ := newCampaignFlowFixture()

		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID: 1,
			Name:       "Empty audience",
			Content:    "hello",
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))
		assert.ErrorIs(t, err, ErrEmptyAudience)
	})

	t.Run("schedule time in the past is rejected", func(t *testing.T) {
		flow, _, _, _ := newCampaignFlowFixture()

		past := utils.UTCNow().Add(-time.Hour).Format(time.RFC3339)
		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID:       1,
			Name:             "Late",
			Content:          "hello",
			TargetContactIDs: []string{uuid.New().String()},
			ScheduledAt:      &past,
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))
		assert.ErrorIs(t, err, ErrScheduleTimeInPast)
	})

	t.Run("malformed schedule time is rejected", func(t *testing.T) {
		flow, _, _, _ := newCampaignFlowFixture()

		bad := "tomorrow at noon"
		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID:       1,
			Name:             "Garbled",
			Content:          "hello",
			TargetContactIDs: []string{uuid.New().String()},
			ScheduledAt:      &bad,
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))
		assert.ErrorIs(t, err, ErrScheduleTimeMalformed)
	})
}

func TestCreateCampaign_Scheduling(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	t.Run("schedule enqueues a start task and forces scheduled status", func(t *testing.T) {
		flow, campaignRepo, _, queue := newCampaignFlowFixture()

		draft := "draft"
		future := utils.UTCNow().Add(2 * time.Hour).Format(time.RFC3339)
		resp, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID:       1,
			Name:             "Launch",
			Content:          "hello",
			TargetContactIDs: []string{uuid.New().String()},
			Status:           &draft,
			ScheduledAt:      &future,
		}, metadata)

		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusScheduled), resp.Status)
		require.NotNil(t, resp.TaskID)
		require.Len(t, queue.enqueued, 1)
		assert.Equal(t, resp.UUID, queue.enqueued[0].CampaignID)

		saved, err := campaignRepo.ByUUID(ctx, resp.UUID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.NotNil(t, saved.TaskID)
		assert.Equal(t, *resp.TaskID, *saved.TaskID)
	})

	t.Run("unscheduled create defaults to draft and enqueues nothing", func(t *testing.T) {
		flow, _, _, queue := newCampaignFlowFixture()

		resp, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID:       1,
			Name:             "Draft only",
			Content:          "hello",
			TargetContactIDs: []string{uuid.New().String()},
		}, metadata)

		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusDraft), resp.Status)
		assert.Nil(t, resp.TaskID)
		assert.Empty(t, queue.enqueued)
	})
}

func TestCreateCampaign_InlineContacts(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	t.Run("pasted list upserts and dedupes by normalized phone", func(t *testing.T) {
		flow, campaignRepo, contactRepo, _ := newCampaignFlowFixture()

		known := &models.Contact{
			UUID:       uuid.New(),
			CustomerID: 1,
			Name:       "Known",
			Phone:      utils.NormalizePhone("+49 170 1111111"),
		}
		require.NoError(t, contactRepo.Save(ctx, known))

		resp, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID: 1,
			Name:       "Pasted",
			Content:    "hello",
			TargetContactList: []dto.InlineContact{
				{Name: "Known Again", Phone: "+49 170 1111111"},
				{Name: "Fresh", Phone: "+49 170 2222222"},
				{Name: "Fresh Duplicate", Phone: "0049 170 2222222"},
			},
		}, metadata)

		require.NoError(t, err)
		// Only the unseen phone becomes a new contact
		assert.Equal(t, 1, resp.ImportedNew)

		saved, err := campaignRepo.ByUUID(ctx, resp.UUID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.Len(t, saved.TargetContactIDs, 2)
		assert.Contains(t, saved.TargetContactIDs, known.UUID.String())

		count, err := contactRepo.Count(ctx, models.ContactFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		// Implicitly created contacts carry the import tag
		fresh, err := contactRepo.ByPhones(ctx, 1, []string{utils.NormalizePhone("+49 170 2222222")})
		require.NoError(t, err)
		require.Len(t, fresh, 1)
		assert.Contains(t, []string(fresh[0].Tags), utils.ImportedViaCampaignTag)
	})

	t.Run("losing the phone unique race reuses the winner's row", func(t *testing.T) {
		contactRepo := &racingContactRepo{fakeContactRepo: newFakeContactRepo(), hideFirstLookup: true}
		winner := &models.Contact{
			UUID:       uuid.New(),
			CustomerID: 1,
			Name:       "Winner",
			Phone:      utils.NormalizePhone("+49 170 4444444"),
		}
		require.NoError(t, contactRepo.Save(ctx, winner))

		campaignRepo := newFakeCampaignRepo()
		customerRepo := newFakeCustomerRepo(activeCustomer(1, "inst-1"))
		flow := NewCampaignFlow(campaignRepo, contactRepo, customerRepo, &fakeTaskQueue{}, nil)

		resp, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID: 1,
			Name:       "Race",
			Content:    "hello",
			TargetContactList: []dto.InlineContact{
				{Name: "Late Writer", Phone: "+49 170 4444444"},
			},
		}, metadata)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.ImportedNew)

		saved, err := campaignRepo.ByUUID(ctx, resp.UUID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.Len(t, saved.TargetContactIDs, 1)
		assert.Equal(t, winner.UUID.String(), saved.TargetContactIDs[0])

		count, err := contactRepo.Count(ctx, models.ContactFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("entry without a usable phone fails the whole request", func(t *testing.T) {
		flow, _, contactRepo, _ := newCampaignFlowFixture()

		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			CustomerID: 1,
			Name:       "Bad entry",
			Content:    "hello",
			TargetContactList: []dto.InlineContact{
				{Name: "Fine", Phone: "+49 170 3333333"},
				{Name: "Broken", Phone: "   "},
			},
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))
		assert.ErrorIs(t, err, ErrPhoneRequired)

		count, err := contactRepo.Count(ctx, models.ContactFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestStartCampaign_Idempotent(t *testing.T) {
	ctx := context.Background()

	scheduled := &models.Campaign{
		UUID:       uuid.New(),
		CustomerID: 1,
		Name:       "Scheduled",
		Content:    "hello",
		Status:     models.CampaignStatusScheduled,
	}
	flow, campaignRepo, _, _ := newCampaignFlowFixture(scheduled)

	t.Run("first trigger moves scheduled to sending", func(t *testing.T) {
		resp, err := flow.StartCampaign(ctx, &dto.StartCampaignRequest{
			CampaignID: scheduled.UUID.String(),
			Action:     "START",
		})

		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusSending), resp.Status)

		stored, err := campaignRepo.ByUUID(ctx, scheduled.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusSending, stored.Status)
	})

	t.Run("redelivered trigger is a benign no-op", func(t *testing.T) {
		resp, err := flow.StartCampaign(ctx, &dto.StartCampaignRequest{
			CampaignID: scheduled.UUID.String(),
			Action:     "START",
		})

		require.NoError(t, err)
		assert.Equal(t, "Campaign is not scheduled, trigger ignored", resp.Message)
		assert.Equal(t, string(models.CampaignStatusSending), resp.Status)
	})

	t.Run("unknown campaign is acknowledged without error", func(t *testing.T) {
		resp, err := flow.StartCampaign(ctx, &dto.StartCampaignRequest{
			CampaignID: uuid.New().String(),
			Action:     "START",
		})

		require.NoError(t, err)
		assert.Equal(t, "Campaign not found, trigger ignored", resp.Message)
	})
}

func TestPauseResumeCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("only a sending campaign can be paused", func(t *testing.T) {
		campaign := &models.Campaign{
			UUID:       uuid.New(),
			CustomerID: 1,
			Name:       "Draft",
			Content:    "hello",
			Status:     models.CampaignStatusDraft,
		}
		flow, _, _, _ := newCampaignFlowFixture(campaign)

		_, err := flow.PauseCampaign(ctx, &dto.PauseCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})

		require.Error(t, err)
		assert.True(t, IsFailedPrecondition(err))
		assert.ErrorIs(t, err, ErrCampaignNotPausable)
	})

	t.Run("manual pause then resume round-trips", func(t *testing.T) {
		campaign := &models.Campaign{
			UUID:       uuid.New(),
			CustomerID: 1,
			Name:       "Live",
			Content:    "hello",
			Status:     models.CampaignStatusSending,
		}
		flow, campaignRepo, _, _ := newCampaignFlowFixture(campaign)

		resp, err := flow.PauseCampaign(ctx, &dto.PauseCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusPaused), resp.Status)

		stored, err := campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, stored.PauseReason)
		assert.Equal(t, models.PauseReasonManual, *stored.PauseReason)
		assert.NotNil(t, stored.PausedAt)

		resumeResp, err := flow.ResumeCampaign(ctx, &dto.ResumeCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusSending), resumeResp.Status)

		stored, err = campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		assert.Nil(t, stored.PauseReason)
		assert.Nil(t, stored.PausedAt)
	})

	t.Run("disconnect-paused campaign refuses manual resume", func(t *testing.T) {
		reason := models.PauseReasonDisconnected
		pausedAt := utils.UTCNow()
		campaign := &models.Campaign{
			UUID:        uuid.New(),
			CustomerID:  1,
			Name:        "Waiting for reconnect",
			Content:     "hello",
			Status:      models.CampaignStatusPaused,
			PauseReason: &reason,
			PausedAt:    &pausedAt,
		}
		flow, _, _, _ := newCampaignFlowFixture(campaign)

		_, err := flow.ResumeCampaign(ctx, &dto.ResumeCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})

		require.Error(t, err)
		assert.True(t, IsFailedPrecondition(err))
		assert.ErrorIs(t, err, ErrCampaignNotResumable)
	})

	t.Run("another tenant's campaign is not found", func(t *testing.T) {
		campaign := &models.Campaign{
			UUID:       uuid.New(),
			CustomerID: 2,
			Name:       "Foreign",
			Content:    "hello",
			Status:     models.CampaignStatusSending,
		}
		flow, _, _, _ := newCampaignFlowFixture(campaign)

		_, err := flow.PauseCampaign(ctx, &dto.PauseCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})

		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestDeleteCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("sending campaign cannot be deleted", func(t *testing.T) {
		campaign := &models.Campaign{
			UUID:       uuid.New(),
			CustomerID: 1,
			Name:       "Live",
			Content:    "hello",
			Status:     models.CampaignStatusSending,
		}
		flow, _, _, _ := newCampaignFlowFixture(campaign)

		_, err := flow.DeleteCampaign(ctx, &dto.DeleteCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})

		require.Error(t, err)
		assert.True(t, IsFailedPrecondition(err))
		assert.ErrorIs(t, err, ErrCampaignNotDeletable)
	})

	t.Run("deleting a scheduled campaign cancels its task", func(t *testing.T) {
		taskID := "task-42"
		future := utils.UTCNow().Add(time.Hour)
		campaign := &models.Campaign{
			UUID:        uuid.New(),
			CustomerID:  1,
			Name:        "Scheduled",
			Content:     "hello",
			Status:      models.CampaignStatusScheduled,
			ScheduledAt: &future,
			TaskID:      &taskID,
		}
		flow, campaignRepo, _, queue := newCampaignFlowFixture(campaign)

		resp, err := flow.DeleteCampaign(ctx, &dto.DeleteCampaignRequest{
			UUID:       campaign.UUID.String(),
			CustomerID: 1,
		})

		require.NoError(t, err)
		assert.Equal(t, "Campaign deleted successfully", resp.Message)
		assert.Equal(t, []string{"task-42"}, queue.cancelled)

		gone, err := campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}

func TestApplyDeliveryReceipt(t *testing.T) {
	ctx := context.Background()

	campaign := &models.Campaign{
		UUID:       uuid.New(),
		CustomerID: 1,
		Name:       "Live",
		Content:    "hello",
		Status:     models.CampaignStatusSending,
		Stats:      models.CampaignStats{Total: 10},
	}
	flow, campaignRepo, _, _ := newCampaignFlowFixture(campaign)

	t.Run("delivery statuses increment sent", func(t *testing.T) {
		for _, status := range []string{"sent", "delivered", "read"} {
			require.NoError(t, flow.ApplyDeliveryReceipt(ctx, campaign.UUID.String(), status))
		}

		stored, err := campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Stats.Sent)
		assert.Zero(t, stored.Stats.Failed)
	})

	t.Run("failure statuses increment failed", func(t *testing.T) {
		require.NoError(t, flow.ApplyDeliveryReceipt(ctx, campaign.UUID.String(), "failed"))
		require.NoError(t, flow.ApplyDeliveryReceipt(ctx, campaign.UUID.String(), "error"))

		stored, err := campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Stats.Failed)
	})

	t.Run("unknown status is ignored", func(t *testing.T) {
		err := flow.ApplyDeliveryReceipt(ctx, campaign.UUID.String(), "typing")
		assert.ErrorIs(t, err, ErrWebhookEventIgnored)
	})

	t.Run("unknown campaign reports not found", func(t *testing.T) {
		err := flow.ApplyDeliveryReceipt(ctx, uuid.New().String(), "sent")
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
}
