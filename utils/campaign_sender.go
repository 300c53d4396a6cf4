package utils

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/models"
)

// CampaignStore owns the campaign lifecycle writes. Every status-dependent
// write is a conditional update, so two near-simultaneous send requests
// result in exactly one dispatch and an edit can never race a claim.
type CampaignStore interface {
	ClaimSending(ctx context.Context, id uint) (*models.Campaign, error)
	ReleaseToDraft(ctx context.Context, id uint) error
	MarkSent(ctx context.Context, id uint, report *models.DeliveryReport) error
	UpdateDraft(ctx context.Context, id uint, subject, contentHTML string) (*models.Campaign, error)
	DeleteDraft(ctx context.Context, id uint) error
}

// CampaignMailer runs the full send pipeline: claim, resolve, preflight,
// bounded fan-out, report.
type CampaignMailer struct {
	Store     CampaignStore
	Directory SubscriberDirectory
	Transport MailTransport
	Logger    *logrus.Entry

	FromEmail string
	FromName  string
	Workers   int
}

func NewCampaignMailer(store CampaignStore, directory SubscriberDirectory, transport MailTransport, logger *logrus.Entry, fromEmail, fromName string, workers int) *CampaignMailer {
	if workers <= 0 {
		workers = 5
	}
	return &CampaignMailer{
		Store:     store,
		Directory: directory,
		Transport: transport,
		Logger:    logger,
		FromEmail: fromEmail,
		FromName:  fromName,
		Workers:   workers,
	}
}

// Send executes one send attempt for the campaign. Resolution-time failures
// (empty audience, unknown segment, unreachable transport) release the claim
// so the campaign stays in draft; a claimed campaign that dispatches always
// ends in sent, even when some recipients fail.
func (cm *CampaignMailer) Send(ctx context.Context, campaignID uint, spec models.AudienceSpec) (*models.Campaign, *models.DeliveryReport, error) {
	campaign, err := cm.Store.ClaimSending(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}

	resolver := AudienceResolver{Directory: cm.Directory}
	recipients, skipped, err := resolver.Resolve(ctx, spec)
	if err != nil {
		cm.release(ctx, campaignID)
		return nil, nil, err
	}

	if err := cm.Transport.Ping(); err != nil {
		cm.Logger.WithError(err).Warn("mail transport unreachable, send aborted")
		cm.release(ctx, campaignID)
		return nil, nil, ErrTransportUnavailable
	}

	report := cm.dispatch(campaign, recipients)
	report.CampaignID = campaignID
	report.SkippedDuplicates = skipped

	if err := cm.Store.MarkSent(ctx, campaignID, report); err != nil {
		// Delivery already happened; surface the bookkeeping failure loudly
		// instead of pretending the send did not run.
		sentry.CaptureException(err)
		return nil, nil, err
	}

	now := time.Now()
	campaign.Status = models.CampaignSent
	campaign.SentAt = &now
	campaign.Report = report

	cm.Logger.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"requested":   report.Requested,
		"sent":        report.Sent,
		"failed":      report.Failed,
		"skipped":     report.SkippedDuplicates,
	}).Info("campaign dispatched")

	return campaign, report, nil
}

func (cm *CampaignMailer) release(ctx context.Context, campaignID uint) {
	if err := cm.Store.ReleaseToDraft(ctx, campaignID); err != nil {
		sentry.CaptureException(err)
		cm.Logger.WithError(err).WithField("campaign_id", campaignID).Error("failed to release campaign to draft")
	}
}

// dispatch fans the recipient list out to the transport with a fixed number
// of workers. One recipient's failure never aborts the batch, and failed
// recipients are not retried within this send.
func (cm *CampaignMailer) dispatch(campaign *models.Campaign, recipients []models.Recipient) *models.DeliveryReport {
	jobs := make(chan models.Recipient)

	var mu sync.Mutex
	var failures []models.DeliveryFailure

	var wg sync.WaitGroup
	for i := 0; i < cm.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rcpt := range jobs {
				email := Email{
					From:      cm.FromEmail,
					FromName:  cm.FromName,
					To:        rcpt.Email,
					ToName:    rcpt.Name,
					Subject:   campaign.Subject,
					Body:      campaign.ContentHTML,
					MessageID: uuid.New().String(),
				}
				if _, err := cm.Transport.Send(email); err != nil {
					cm.Logger.WithError(err).WithField("recipient", rcpt.Email).Warn("delivery failed")
					mu.Lock()
					failures = append(failures, models.DeliveryFailure{
						Email:  rcpt.Email,
						Reason: err.Error(),
					})
					mu.Unlock()
				}
			}
		}()
	}

	for _, rcpt := range recipients {
		jobs <- rcpt
	}
	close(jobs)
	wg.Wait()

	return &models.DeliveryReport{
		Requested: len(recipients),
		Sent:      len(recipients) - len(failures),
		Failed:    len(failures),
		Failures:  failures,
	}
}

// GormCampaignStore is the database-backed CampaignStore.
type GormCampaignStore struct {
	DB *gorm.DB
}

func NewGormCampaignStore(db *gorm.DB) *GormCampaignStore {
	return &GormCampaignStore{DB: db}
}

// ClaimSending flips draft to sending with a conditional update. Zero rows
// affected means another request won the race (or the campaign was already
// sent), which maps to ErrAlreadySent; a missing row surfaces as not found.
func (s *GormCampaignStore) ClaimSending(ctx context.Context, id uint) (*models.Campaign, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignDraft).
		Update("status", models.CampaignSending)
	if res.Error != nil {
		return nil, res.Error
	}

	var campaign models.Campaign
	if err := s.DB.WithContext(ctx).First(&campaign, id).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrAlreadySent
	}
	return &campaign, nil
}

func (s *GormCampaignStore) ReleaseToDraft(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignSending).
		Update("status", models.CampaignDraft).Error
}

// UpdateDraft edits subject/content under the same status condition as the
// claim. A read-modify-Save here would write the stale status back and could
// flip a sending campaign to draft mid-dispatch; the conditional update
// cannot. Zero rows affected on an existing campaign means it is locked.
func (s *GormCampaignStore) UpdateDraft(ctx context.Context, id uint, subject, contentHTML string) (*models.Campaign, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignDraft).
		Updates(map[string]interface{}{
			"subject":      subject,
			"content_html": contentHTML,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var campaign models.Campaign
	if err := s.DB.WithContext(ctx).First(&campaign, id).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrCampaignLocked
	}
	return &campaign, nil
}

// DeleteDraft removes a campaign only while it is still in draft.
func (s *GormCampaignStore) DeleteDraft(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).
		Where("status = ?", models.CampaignDraft).
		Delete(&models.Campaign{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var campaign models.Campaign
		if err := s.DB.WithContext(ctx).First(&campaign, id).Error; err != nil {
			return err
		}
		return models.ErrCampaignLocked
	}
	return nil
}

func (s *GormCampaignStore) MarkSent(ctx context.Context, id uint, report *models.DeliveryReport) error {
	now := time.Now()
	return s.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(models.Campaign{
			Status: models.CampaignSent,
			SentAt: &now,
			Report: report,
		}).Error
}
