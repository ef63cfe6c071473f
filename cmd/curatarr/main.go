package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/curatarr/curatarr/internal/api"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/db"
	"github.com/curatarr/curatarr/internal/jobs"
	"github.com/curatarr/curatarr/internal/repository"
	"github.com/curatarr/curatarr/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	log.Println("Curatarr starting...")
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	mediaRepo := repository.NewMediaRepository(database.DB)
	connRepo := repository.NewConnectionRepository(database.DB)
	historyRepo := repository.NewHistoryRepository(database.DB)
	scheduleRepo := repository.NewScheduleRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)

	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Stop()

	syncHandler := jobs.NewSyncHandler(mediaRepo, connRepo, settingsRepo, queue.Meta(), cfg.DataDir)
	queue.RegisterHandler(jobs.TaskSyncMovies, syncHandler)
	queue.RegisterHandler(jobs.TaskSyncShows, syncHandler)
	queue.RegisterHandler(jobs.TaskSyncHistory, jobs.NewHistoryHandler(mediaRepo, historyRepo, connRepo, settingsRepo, queue.Meta()))
	aiHandler := jobs.NewAIHandler(mediaRepo, connRepo, settingsRepo, queue.Meta())
	queue.RegisterHandler(jobs.TaskAILearn, aiHandler)
	queue.RegisterHandler(jobs.TaskAIScore, aiHandler)
	queue.RegisterHandler(jobs.TaskPurge, jobs.NewPurgeHandler(mediaRepo, connRepo, settingsRepo, queue.Meta()))
	queue.RegisterHandler(jobs.TaskVacuum, jobs.NewVacuumHandler(database, queue.Meta()))

	if err := queue.Start(); err != nil {
		log.Fatalf("queue worker failed: %v", err)
	}

	sched := scheduler.New(scheduleRepo)
	scheduler.RegisterDefaultTasks(sched, queue)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler failed: %v", err)
	}
	defer sched.Stop()

	srv := api.NewServer(cfg, database, queue)
	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
