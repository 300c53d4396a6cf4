package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"campuscms/config"
	"campuscms/models"
	"campuscms/utils"
)

type sendOutcome struct {
	campaign *models.Campaign
	report   *models.DeliveryReport
	err      error
}

// SendCampaign resolves the submitted audience and dispatches the campaign.
// Resolution-time failures come back synchronously; if the dispatch outlives
// the request timeout the caller gets 202 and delivery finishes in the
// background.
func (cc *CampaignController) SendCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))
	if campaignID == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", nil)
	}

	var spec models.AudienceSpec
	if err := c.BodyParser(&spec); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(spec); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// The send must not be cancelled when the HTTP request ends, so it runs
	// on a background context and the handler just waits for a while.
	done := make(chan sendOutcome, 1)
	go func() {
		campaign, report, err := cc.Mailer.Send(context.Background(), campaignID, spec)
		done <- sendOutcome{campaign: campaign, report: report, err: err}
	}()

	timeout := config.AppConfig.SendRequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case out := <-done:
		if out.err != nil {
			return cc.sendError(c, out.err)
		}
		return c.JSON(fiber.Map{
			"campaign": out.campaign,
			"report":   out.report,
		})
	case <-time.After(timeout):
		cc.Logger.WithField("campaign_id", campaignID).Info("send still running, returning accepted")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "accepted",
			"message": "Send is still in progress; check the campaign for the delivery report",
		})
	}
}

func (cc *CampaignController) sendError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	case errors.Is(err, models.ErrAlreadySent):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign already sent", err)
	case errors.Is(err, models.ErrEmptyAudience):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Audience resolved to zero recipients", err)
	case errors.Is(err, models.ErrUnknownSegment):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown segment status", err)
	case errors.Is(err, models.ErrInvalidEmail):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid extra email", err)
	case errors.Is(err, utils.ErrTransportUnavailable):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Mail transport unavailable, campaign left in draft", err)
	default:
		cc.Logger.WithError(err).Error("send failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Send failed", err)
	}
}
