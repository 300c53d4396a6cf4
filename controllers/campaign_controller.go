package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/models"
	"campuscms/utils"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Mailer *utils.CampaignMailer
	Store  utils.CampaignStore
}

func NewCampaignController(db *gorm.DB, logger *logrus.Entry, mailer *utils.CampaignMailer, store utils.CampaignStore) *CampaignController {
	return &CampaignController{
		DB:     db,
		Logger: logger,
		Mailer: mailer,
		Store:  store,
	}
}

// CreateCampaign creates a campaign in draft.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input struct {
		Subject     string `json:"subject" validate:"required,max=300"`
		ContentHTML string `json:"content_html" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	campaign := models.Campaign{
		Subject:     input.Subject,
		ContentHTML: input.ContentHTML,
		Status:      models.CampaignDraft,
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to create campaign")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create campaign", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaigns returns all campaigns, newest first.
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	var campaigns []models.Campaign
	if err := cc.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaigns", err)
	}
	return c.JSON(campaigns)
}

// GetCampaign returns a single campaign, including its delivery report once
// sent.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaign", err)
	}
	return c.JSON(campaign)
}

// UpdateCampaign edits subject/content of a draft campaign. The write is
// conditional on the draft status, so an edit can never undo a concurrent
// claim; a campaign that left draft comes back locked.
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	var input struct {
		Subject     string `json:"subject" validate:"required,max=300"`
		ContentHTML string `json:"content_html" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	campaign, err := cc.Store.UpdateDraft(c.Context(), utils.ParseUint(c.Params("id")), input.Subject, input.ContentHTML)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
		}
		if errors.Is(err, models.ErrCampaignLocked) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign is locked", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update campaign", err)
	}

	return c.JSON(campaign)
}

// DeleteCampaign removes a draft campaign. Sent campaigns cannot be deleted
// through the edit path.
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	if err := cc.Store.DeleteDraft(c.Context(), utils.ParseUint(c.Params("id"))); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
		}
		if errors.Is(err, models.ErrCampaignLocked) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign is locked", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete campaign", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Campaign deleted successfully",
	}))
}
