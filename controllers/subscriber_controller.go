package controller

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/badoux/checkmail"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/models"
	"campuscms/utils"
)

const countsCacheKey = "subscribers:counts"
const countsCacheTTL = 30 * time.Second

type SubscriberController struct {
	DB        *gorm.DB
	Logger    *logrus.Entry
	Directory utils.SubscriberDirectory
	Cache     *redis.Client // nil when redis is disabled
}

func NewSubscriberController(db *gorm.DB, logger *logrus.Entry, directory utils.SubscriberDirectory, cache *redis.Client) *SubscriberController {
	return &SubscriberController{
		DB:        db,
		Logger:    logger,
		Directory: directory,
		Cache:     cache,
	}
}

// GetCounts returns the per-status totals backing the segment picker. Counts
// are cached briefly; the cache is advisory, resolution never reads it.
func (sc *SubscriberController) GetCounts(c *fiber.Ctx) error {
	if sc.Cache != nil {
		if cached, err := sc.Cache.Get(c.Context(), countsCacheKey).Bytes(); err == nil {
			var counts models.SubscriberCounts
			if json.Unmarshal(cached, &counts) == nil {
				return c.JSON(counts)
			}
		}
	}

	counts, err := sc.Directory.Counts(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count subscribers", err)
	}

	if sc.Cache != nil {
		if payload, err := json.Marshal(counts); err == nil {
			if err := sc.Cache.Set(c.Context(), countsCacheKey, payload, countsCacheTTL).Err(); err != nil {
				sc.Logger.WithError(err).Warn("failed to cache subscriber counts")
			}
		}
	}

	return c.JSON(counts)
}

// GetSubscribers is the paginated keyword search used by the custom-mode
// picker.
func (sc *SubscriberController) GetSubscribers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	subs, total, err := sc.Directory.Search(c.Context(), c.Query("q"), c.Query("status"), page, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to search subscribers", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  subs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// CreateSubscriber adds an entry to the directory.
func (sc *SubscriberController) CreateSubscriber(c *fiber.Ctx) error {
	var input struct {
		Email  string `json:"email" validate:"required"`
		Name   string `json:"name" validate:"max=200"`
		Status string `json:"status"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	email := models.NormalizeEmail(input.Email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	status := input.Status
	if status == "" {
		status = models.SubscriberPending
	}
	if !models.ValidSubscriberStatus(status) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid subscriber status", nil)
	}

	var existing models.Subscriber
	if err := sc.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Subscriber with this email already exists", nil)
	}

	sub := models.Subscriber{
		Email:  email,
		Name:   input.Name,
		Status: status,
	}
	if err := sc.DB.Create(&sub).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create subscriber", err)
	}

	sc.invalidateCounts(c)
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// UpdateSubscriber edits name/status, and email when it does not collide.
func (sc *SubscriberController) UpdateSubscriber(c *fiber.Ctx) error {
	var input struct {
		Email  string `json:"email"`
		Name   string `json:"name" validate:"max=200"`
		Status string `json:"status"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var sub models.Subscriber
	if err := sc.DB.First(&sub, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Subscriber not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch subscriber", err)
	}

	if input.Email != "" {
		email := models.NormalizeEmail(input.Email)
		if err := checkmail.ValidateFormat(email); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
		}
		if email != sub.Email {
			var existing models.Subscriber
			if err := sc.DB.Where("email = ?", email).First(&existing).Error; err == nil {
				return utils.ErrorResponse(c, fiber.StatusConflict, "Subscriber with this email already exists", nil)
			}
			sub.Email = email
		}
	}
	if input.Name != "" {
		sub.Name = input.Name
	}
	if input.Status != "" {
		if !models.ValidSubscriberStatus(input.Status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid subscriber status", nil)
		}
		sub.Status = input.Status
	}

	if err := sc.DB.Save(&sub).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update subscriber", err)
	}

	sc.invalidateCounts(c)
	return c.JSON(sub)
}

// DeleteSubscriber removes a directory entry. In-flight sends that already
// resolved this subscriber are unaffected; future custom selections drop the
// stale id silently.
func (sc *SubscriberController) DeleteSubscriber(c *fiber.Ctx) error {
	result := sc.DB.Delete(&models.Subscriber{}, c.Params("id"))
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete subscriber", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Subscriber not found", nil)
	}

	sc.invalidateCounts(c)
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Subscriber deleted successfully",
	}))
}

func (sc *SubscriberController) invalidateCounts(c *fiber.Ctx) {
	if sc.Cache == nil {
		return
	}
	if err := sc.Cache.Del(c.Context(), countsCacheKey).Err(); err != nil {
		sc.Logger.WithError(err).Warn("failed to invalidate counts cache")
	}
}
