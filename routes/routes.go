package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "campuscms/controllers"
	"campuscms/middleware"
	"campuscms/utils"
)

type Deps struct {
	DB     *gorm.DB
	Log    *logrus.Logger
	Mailer *utils.CampaignMailer
	Cache  *redis.Client // nil when redis is disabled
}

func SetupRoutes(app *fiber.App, deps Deps) {
	directory := utils.NewGormDirectory(deps.DB)
	store := utils.NewGormCampaignStore(deps.DB)

	campaignController := controller.NewCampaignController(deps.DB, deps.Log.WithField("component", "campaign"), deps.Mailer, store)
	subscriberController := controller.NewSubscriberController(deps.DB, deps.Log.WithField("component", "subscriber"), directory, deps.Cache)
	postController := controller.NewPostController(deps.DB, deps.Log.WithField("component", "post"))
	replyController := controller.NewReplyController(deps.DB, deps.Log.WithField("component", "reply"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public auth endpoint
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	auth.Post("/login", controller.Login)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Campaign routes
	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id", campaignController.UpdateCampaign)
	campaign.Delete("/:id", campaignController.DeleteCampaign)
	campaign.Post("/:id/send", middleware.SendRateLimiter(), campaignController.SendCampaign)

	// Subscriber directory routes
	subscriber := api.Group("/subscribers")
	subscriber.Get("/counts", subscriberController.GetCounts)
	subscriber.Get("/", subscriberController.GetSubscribers)
	subscriber.Post("/", subscriberController.CreateSubscriber)
	subscriber.Put("/:id", subscriberController.UpdateSubscriber)
	subscriber.Delete("/:id", subscriberController.DeleteSubscriber)

	// Live audience preview for the campaign send screen
	app.Get("/api/v1/audience/preview", websocket.New(
		controller.HandleAudiencePreview(directory, deps.Log.WithField("component", "audience")),
	))

	// Content routes
	post := api.Group("/posts")
	post.Post("/", postController.CreatePost)
	post.Get("/", postController.GetPosts)
	post.Get("/:id", postController.GetPost)
	post.Put("/:id", postController.UpdatePost)
	post.Delete("/:id", postController.DeletePost)

	category := api.Group("/categories")
	category.Post("/", postController.CreateCategory)
	category.Get("/", postController.GetCategories)
	category.Delete("/:id", postController.DeleteCategory)

	// Newsletter inbox
	reply := api.Group("/replies")
	reply.Get("/", replyController.GetReplies)
	reply.Put("/:id/seen", replyController.MarkReplySeen)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
