package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EgorMarkor/BotOpros/internal/bot"
	"github.com/EgorMarkor/BotOpros/internal/config"
	"github.com/EgorMarkor/BotOpros/internal/controller"
	"github.com/EgorMarkor/BotOpros/internal/engine"
	"github.com/EgorMarkor/BotOpros/internal/repository"
	"github.com/EgorMarkor/BotOpros/internal/service"
	"github.com/EgorMarkor/BotOpros/pkg/database"
	"github.com/EgorMarkor/BotOpros/pkg/logger"
	"github.com/EgorMarkor/BotOpros/pkg/monitoring"
	"github.com/EgorMarkor/BotOpros/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Bot    *bot.Bot

	tracerShutdown func(context.Context) error
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	answer   *repository.AnswerRepository
}

type services struct {
	ai     *service.AIService
	report *service.ReportService
}

type controllers struct {
	user     *controller.UserController
	question *controller.QuestionController
	answer   *controller.AnswerController
	report   *controller.ReportController
	health   *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db),
		answer:   repository.NewAnswerRepository(db),
	}
}

func initServices(cfg *config.Config, repos *repositories, sender service.DocumentSender) *services {
	s := &services{}
	s.ai = service.NewAIService(cfg.AI)
	s.report = service.NewReportService(repos.user, repos.answer, s.ai, sender, cfg.Report, logger.Log)
	return s
}

func initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		user:     controller.NewUserController(repos.user, repos.answer),
		question: controller.NewQuestionController(repos.question),
		answer:   controller.NewAnswerController(repos.answer),
		report:   controller.NewReportController(s.report),
		health:   controller.NewHealthController(db),
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	if cfg.MigrateOnly {
		return app
	}

	repos := initRepositories(db)

	client, err := bot.NewClient(cfg.Telegram, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize telegram client", zap.Error(err))
	}

	states := engine.NewStateTable()
	eng := engine.New(repos.user, repos.question, repos.answer, client, states, logger.Log)
	app.Bot = bot.New(client, eng, logger.Log)

	svcs := initServices(cfg, repos, client)
	ctrls := initControllers(svcs, repos, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("botopros", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.registerRoutes(router, ctrls)

	return app
}

func (a *App) Run() {
	botCtx, stopBot := context.WithCancel(context.Background())
	go a.Bot.Run(botCtx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Admin server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	stopBot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Exiting")
}
