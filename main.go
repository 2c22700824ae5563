package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/buildgrid/sitewise/auth"
	controller "github.com/buildgrid/sitewise/controller"
	"github.com/buildgrid/sitewise/events"
	"github.com/buildgrid/sitewise/feed"
	"github.com/buildgrid/sitewise/initializers"
	"github.com/buildgrid/sitewise/itp"
	middleware "github.com/buildgrid/sitewise/middleware"
	service "github.com/buildgrid/sitewise/service"
)

const changeChannel = "sitewise:changes"

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("[init] No .env file loaded: %s", err)
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authn, err := auth.New()
	if err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize auth: %s", err)
	}

	// Redis backs the change feed; without it the API still serves, clients
	// just fall back to polling.
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
	} else {
		log.Println("REDIS_ADDR not set; change feed disabled")
	}
	publisher := feed.NewPublisher(redisClient, changeChannel)
	broker := feed.NewBroker()
	if redisClient != nil {
		go feed.SubscribeChanges(ctx, redisClient, changeChannel, broker.Broadcast)
	}

	var producer *events.Producer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer = events.NewProducer(strings.Split(brokers, ","), "sitewise.activity")
		defer producer.Close()
	} else {
		log.Println("KAFKA_BROKERS not set; activity stream disabled")
	}

	notify := &service.Notifier{DB: initializers.DB, Feed: publisher, Audit: producer}

	qaService := service.NewQAService(initializers.DB, notify)
	docService, err := service.NewDocumentService(initializers.DB, notify)
	if err != nil {
		log.Fatalf("Failed to initialize document service: %s", err)
	}
	taskService := service.NewTaskService(initializers.DB, notify, qaService, docService)
	projectService := service.NewProjectService(initializers.DB, notify)
	supplierService := service.NewSupplierService(initializers.DB, notify)
	teamService := service.NewTeamService(initializers.DB, notify)
	dashboardService := service.NewDashboardService(initializers.DB)

	// ITP templates: seed from disk and keep in sync while running.
	if dir := os.Getenv("ITP_TEMPLATE_DIR"); dir != "" {
		qaService.SyncTemplatesFromDir(dir)
		go func() {
			if err := itp.Watch(ctx, dir, func() { qaService.SyncTemplatesFromDir(dir) }); err != nil {
				log.Printf("[main] ITP template watcher stopped: %v", err)
			}
		}()
	}

	// Daily sweep for tasks past their due date.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 6 * * *", func() {
		if err := qaService.SweepOverdue(); err != nil {
			log.Printf("[cron] Overdue sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("[CRITICAL] Failed to schedule overdue sweep: %s", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	projectController := controller.NewProjectController(projectService, dashboardService, teamService)
	taskController := controller.NewTaskController(taskService, teamService)
	qaController := controller.NewQAController(qaService, teamService)
	supplierController := controller.NewSupplierController(supplierService, teamService)
	docController := controller.NewDocumentController(docService, teamService)
	teamController := controller.NewTeamController(teamService)
	feedController := controller.NewFeedController(broker, teamService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck and metrics stay open
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/", middleware.RequireAuth(authn))

	api.GET("/me", teamController.GetMe)
	api.PUT("/me", teamController.UpdateMe)

	api.POST("/projects", projectController.CreateProject)
	api.GET("/projects", projectController.ListProjects)
	api.GET("/projects/:id", projectController.GetProject)
	api.PUT("/projects/:id", projectController.UpdateProject)
	api.GET("/projects/:id/dashboard", projectController.GetDashboard)

	api.POST("/projects/:id/tasks", taskController.CreateTask)
	api.GET("/projects/:id/tasks", taskController.ListTasks)
	api.GET("/tasks/:id", taskController.GetTask)
	api.PUT("/tasks/:id", taskController.UpdateTask)
	api.DELETE("/tasks/:id", taskController.DeleteTask)
	api.PUT("/tasks/:id/stage", taskController.ChangeStage)

	api.POST("/tasks/:id/proposals", taskController.CreateProposal)
	api.GET("/projects/:id/proposals", taskController.ListProposals)
	api.PUT("/proposals/:id/approve", taskController.ApproveProposal)
	api.PUT("/proposals/:id/reject", taskController.RejectProposal)

	api.POST("/suppliers", supplierController.CreateSupplier)
	api.GET("/suppliers", supplierController.ListSuppliers)
	api.GET("/suppliers/:id", supplierController.GetSupplier)
	api.PUT("/suppliers/:id", supplierController.UpdateSupplier)
	api.POST("/projects/:id/deliveries", supplierController.CreateDelivery)
	api.GET("/projects/:id/deliveries", supplierController.ListDeliveries)
	api.PUT("/deliveries/:id/status", supplierController.UpdateDeliveryStatus)

	api.GET("/projects/:id/qa-alerts", qaController.ListAlerts)
	api.PUT("/qa-alerts/:id/ack", qaController.AcknowledgeAlert)
	api.PUT("/qa-alerts/:id/resolve", qaController.ResolveAlert)
	api.GET("/itp-templates", qaController.ListTemplates)
	api.POST("/itp-templates",
		middleware.StrictRateLimiter.Limit(),
		qaController.UpsertTemplate)

	// Uploads get the stricter limiter
	api.POST("/projects/:id/documents",
		middleware.StrictRateLimiter.Limit(),
		docController.UploadDocument)
	api.GET("/projects/:id/documents", docController.ListDocuments)
	api.GET("/search", docController.Search)

	api.GET("/projects/:id/members", teamController.ListMembers)
	api.POST("/projects/:id/members", teamController.InviteMember)
	api.PUT("/projects/:id/members/:userID", teamController.UpdateMemberRole)
	api.DELETE("/projects/:id/members/:userID", teamController.RemoveMember)

	api.GET("/feed/:id", feedController.Stream)

	listenAddr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		listenAddr = ":" + port
	}
	router.Run(listenAddr)
}
