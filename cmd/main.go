package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"survey-service/internal/config"
	"survey-service/internal/database/postgres"
	"survey-service/internal/database/redis"
	"survey-service/internal/event"
	"survey-service/internal/geo"
	"survey-service/internal/handlers"
	"survey-service/internal/repository"
	"survey-service/internal/services"
	"survey-service/internal/storage"
	"survey-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	goredis "github.com/redis/go-redis/v9"
)

const gridMaintenanceInterval = 5 * time.Minute

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/survey", "log", "survey_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		// The farm cache is an optimization; run without it.
		log.Printf("error connect to redis, continuing without cache: %s", err)
	}

	photoStore, err := storage.NewPhotoStore(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to initialize photo store: %v", err)
	}

	var publisher services.EventPublisher
	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Printf("error connect to RabbitMQ, events will not be published: %s", err)
	} else {
		defer rabbitConn.Close()
		publisher = event.NewSurveyEventPublisher(rabbitConn)
	}

	farmRepo := repository.NewFarmRepository(db, redisUnderlying(redisClient))
	gridRepo := repository.NewGridRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	imageRepo := repository.NewImageRepository(db)

	engine := geo.NewPostGISEngine(db)
	verifier := services.NewCaptureVerifier(engine, cfg.SamplingCfg.VerifyToleranceM)

	farmService := services.NewFarmService(farmRepo, engine, cfg.SamplingCfg)
	gridService := services.NewGridService(farmRepo, gridRepo, engine, cfg.SamplingCfg)
	sessionService := services.NewSessionService(farmRepo, gridRepo, sessionRepo, gridService, publisher, cfg.SamplingCfg)
	uploadService := services.NewUploadService(farmRepo, imageRepo, sessionRepo, photoStore, verifier, publisher, cfg.SamplingCfg)

	// Background grid maintenance: rebuild grids for farms whose
	// boundary changed, on a fixed schedule.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var workerWg sync.WaitGroup
	pool := worker.NewWorkingPool(2, 16)
	workerWg.Add(1)
	go pool.Start(workerCtx, &workerWg)

	scheduler := worker.NewJobScheduler("grid-maintenance", gridMaintenanceInterval, pool)
	scheduler.AddJob(worker.NewGridMaintenanceJob(gridService, 20))
	go scheduler.Run(workerCtx)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Survey service is healthy")
	})

	handlers.NewFarmHandler(farmService).Register(app)
	handlers.NewSessionHandler(sessionService).Register(app)
	handlers.NewUploadHandler(uploadService).Register(app)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")
	stopWorkers()
	workerWg.Wait()
}

func redisUnderlying(c *redis.Client) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.GetClient()
}
