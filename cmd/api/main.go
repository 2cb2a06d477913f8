package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jdvalenciag/emprende_hub/attachments"
	"github.com/jdvalenciag/emprende_hub/chat"
	config "github.com/jdvalenciag/emprende_hub/configs"
	"github.com/jdvalenciag/emprende_hub/database"
	"github.com/jdvalenciag/emprende_hub/handlers"
	"github.com/jdvalenciag/emprende_hub/jobs"
	"github.com/jdvalenciag/emprende_hub/routes"
	"github.com/jdvalenciag/emprende_hub/services"
	hubws "github.com/jdvalenciag/emprende_hub/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	blob := newBlobStore()
	policy := attachments.NewPolicy(maxAttachmentBytes())

	presence := hubws.NewPresence()
	hub := hubws.NewHub(presence)

	var bridge *hubws.NATSBridge
	if natsURL := config.Config("NATS_URL"); natsURL != "" {
		var err error
		bridge, err = hubws.NewNATSBridge(natsURL, hub)
		if err != nil {
			log.Fatalf("🔥 Failed to connect NATS bridge: %v", err)
		}
	}

	store := chat.NewStore(database.DB)
	resolver := chat.NewResolver(database.DB, services.NewRelationshipService(database.DB))
	handlers.InitMessaging(hub, blob, policy, store, resolver)

	c := cron.New()
	c.AddFunc("@hourly", jobs.NewOrphanSweeper(blob))
	c.Start()
	log.Println("✅ Cron job for orphan attachment sweep scheduled successfully.")

	app := newServer()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("🔥 Shutdown error: %v", err)
		}
		c.Stop()
		if bridge != nil {
			bridge.Close()
		}
	}()

	port := config.ConfigOr("PORT", "8080")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}

// newServer builds the fiber app with all middleware and routes attached.
// Listening and wiring of the backing services stay in main.
func newServer() *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "EmprendeHub Chat",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Headroom over the attachment cap for multipart framing, so the
		// attachment policy, not the transport, decides what is too large.
		BodyLimit: int(maxAttachmentBytes()) + (1 << 20),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization, Content-Disposition",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.AuthRoutes(app)
	routes.MessagingRoutes(app)
	routes.AttachmentRoutes(app)
	routes.AdminRoutes(app)

	return app
}

func newBlobStore() attachments.BlobStore {
	if cloudinaryURL := config.Config("CLOUDINARY_URL"); cloudinaryURL != "" {
		store, err := attachments.NewCloudinaryStore(cloudinaryURL, config.Config("CLOUDINARY_FOLDER"))
		if err != nil {
			log.Fatalf("🔥 Failed to initialize Cloudinary store: %v", err)
		}
		log.Println("✅ Using Cloudinary attachment storage")
		return store
	}

	dir := config.ConfigOr("ATTACHMENT_DIR", "./data/attachments")
	store, err := attachments.NewDiskStore(dir)
	if err != nil {
		log.Fatalf("🔥 Failed to initialize attachment directory: %v", err)
	}
	log.Printf("✅ Using disk attachment storage at %s", dir)
	return store
}

func maxAttachmentBytes() int64 {
	mb, err := strconv.Atoi(config.ConfigOr("MAX_ATTACHMENT_MB", "10"))
	if err != nil || mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}
