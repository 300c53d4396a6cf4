package controller

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"campuscms/config"
	"campuscms/models"
	"campuscms/utils"
)

// Login authenticates the admin account and issues a JWT.
func Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if config.AppConfig.AdminPassHash == "" {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Admin login is not configured", nil)
	}

	if models.NormalizeEmail(input.Email) != models.NormalizeEmail(config.AppConfig.AdminEmail) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(config.AppConfig.AdminPassHash), []byte(input.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	token, err := utils.GenerateAdminToken(config.AppConfig.AdminEmail)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue token", err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
	})
}
