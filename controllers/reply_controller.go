package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/models"
	"campuscms/utils"
)

type ReplyController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewReplyController(db *gorm.DB, logger *logrus.Entry) *ReplyController {
	return &ReplyController{DB: db, Logger: logger}
}

// GetReplies lists newsletter mailbox replies, newest first.
func (rc *ReplyController) GetReplies(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := rc.DB.Model(&models.InboxReply{})
	if c.Query("unseen") == "true" {
		query = query.Where("seen = false")
	}

	var total int64
	query.Count(&total)

	var replies []models.InboxReply
	if err := query.Order("received_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&replies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch replies", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  replies,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// MarkReplySeen flags a reply as handled.
func (rc *ReplyController) MarkReplySeen(c *fiber.Ctx) error {
	result := rc.DB.Model(&models.InboxReply{}).
		Where("id = ?", c.Params("id")).
		Update("seen", true)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update reply", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Reply not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Reply marked as seen",
	}))
}
