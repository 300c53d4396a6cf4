package controller

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/models"
	"campuscms/utils"
)

type PostController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewPostController(db *gorm.DB, logger *logrus.Entry) *PostController {
	return &PostController{DB: db, Logger: logger}
}

func (pc *PostController) CreatePost(c *fiber.Ctx) error {
	var input struct {
		Title      string `json:"title" validate:"required,max=300"`
		Slug       string `json:"slug" validate:"required,max=300"`
		BodyHTML   string `json:"body_html"`
		CategoryID *uint  `json:"category_id"`
		Published  bool   `json:"published"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.Post
	if err := pc.DB.Where("slug = ?", input.Slug).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Post with this slug already exists", nil)
	}

	post := models.Post{
		Title:      input.Title,
		Slug:       input.Slug,
		BodyHTML:   input.BodyHTML,
		CategoryID: input.CategoryID,
		Published:  input.Published,
	}
	if err := pc.DB.Create(&post).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create post", err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (pc *PostController) GetPosts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := pc.DB.Model(&models.Post{})
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", utils.ParseUint(categoryID))
	}
	if published := c.Query("published"); published != "" {
		query = query.Where("published = ?", published == "true")
	}

	var total int64
	query.Count(&total)

	var posts []models.Post
	if err := query.Preload("Category").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch posts", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  posts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (pc *PostController) GetPost(c *fiber.Ctx) error {
	var post models.Post
	if err := pc.DB.Preload("Category").First(&post, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch post", err)
	}
	return c.JSON(post)
}

func (pc *PostController) UpdatePost(c *fiber.Ctx) error {
	var input struct {
		Title      string `json:"title" validate:"omitempty,max=300"`
		Slug       string `json:"slug" validate:"omitempty,max=300"`
		BodyHTML   string `json:"body_html"`
		CategoryID *uint  `json:"category_id"`
		Published  *bool  `json:"published"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var post models.Post
	if err := pc.DB.First(&post, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch post", err)
	}

	if input.Slug != "" && input.Slug != post.Slug {
		var existing models.Post
		if err := pc.DB.Where("slug = ?", input.Slug).First(&existing).Error; err == nil {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Post with this slug already exists", nil)
		}
		post.Slug = input.Slug
	}
	if input.Title != "" {
		post.Title = input.Title
	}
	if input.BodyHTML != "" {
		post.BodyHTML = input.BodyHTML
	}
	if input.CategoryID != nil {
		post.CategoryID = input.CategoryID
	}
	if input.Published != nil {
		post.Published = *input.Published
	}

	if err := pc.DB.Save(&post).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update post", err)
	}
	return c.JSON(post)
}

func (pc *PostController) DeletePost(c *fiber.Ctx) error {
	result := pc.DB.Delete(&models.Post{}, c.Params("id"))
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete post", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Post deleted successfully",
	}))
}

// Category CRUD

func (pc *PostController) CreateCategory(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name" validate:"required,max=100"`
		Slug string `json:"slug" validate:"required,max=100"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.Category
	if err := pc.DB.Where("slug = ?", input.Slug).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Category with this slug already exists", nil)
	}

	category := models.Category{Name: input.Name, Slug: input.Slug}
	if err := pc.DB.Create(&category).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create category", err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (pc *PostController) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := pc.DB.Order("name").Find(&categories).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch categories", err)
	}
	return c.JSON(categories)
}

func (pc *PostController) DeleteCategory(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	// Detach posts first so they do not point at a missing category.
	if err := pc.DB.Model(&models.Post{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to detach posts", err)
	}

	result := pc.DB.Delete(&models.Category{}, id)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete category", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Category not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Category deleted successfully",
	}))
}
