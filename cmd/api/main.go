package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/byru-rnd/kasbon-analytics/internal/api/handlers"
	"github.com/byru-rnd/kasbon-analytics/internal/api/middleware"
	"github.com/byru-rnd/kasbon-analytics/internal/config"
	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
	"github.com/byru-rnd/kasbon-analytics/internal/delivery"
	"github.com/byru-rnd/kasbon-analytics/internal/jobs"
	"github.com/byru-rnd/kasbon-analytics/internal/jobs/inmemory"
	"github.com/byru-rnd/kasbon-analytics/internal/logger"
	"github.com/byru-rnd/kasbon-analytics/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (optional, env vars and defaults otherwise)")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	ctx := context.Background()

	// Optional GCS delivery
	var uploader delivery.Uploader
	if cfg.Delivery.Bucket != "" {
		gcs, err := delivery.NewGCSUploader(ctx, cfg.Delivery.Bucket, "", cfg.Delivery.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS uploader")
		}
		defer gcs.Close()
		uploader = gcs
		log.Info().Str("bucket", cfg.Delivery.Bucket).Msg("Report delivery enabled")
	} else {
		log.Warn().Msg("No delivery bucket configured - reports stay local")
	}

	// Job infrastructure
	jobStore := inmemory.NewStore(cfg.Storage.JobTTL)
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	reportPipeline := pipeline.New(cfg.Storage.OutputDir, nil, uploader)

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		reportJob, ok := job.(*jobs.ReportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		jobLog := log.With().
			Str("job_id", reportJob.JobID).
			Str("filename", reportJob.OriginalFilename).
			Logger()
		jobLog.Info().Msg("Processing report job")

		ctx = logger.WithContext(ctx, jobLog)
		state, err := reportPipeline.Run(ctx, reportJob.DatasetPath, reportJob.OriginalFilename, reportJob.JobID)
		if err != nil {
			jobLog.Error().Err(err).Msg("Report pipeline failed")
			if dataset.IsFatal(err) {
				// Invalid input cannot succeed on retry.
				return jobs.Permanent(err)
			}
			return err
		}

		reportJob.ReportPath = state.ReportPath
		reportJob.RemoteURI = state.RemoteURI

		jobLog.Info().
			Str("report_path", state.ReportPath).
			Int("dropped_rows", state.Dataset.DroppedRows).
			Msg("Report generated")
		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Handlers and routes
	reportsHandler := handlers.NewReportsHandler(jobQueue, jobStore, cfg.Storage.UploadsDir, cfg.Server.MaxUploadBytes, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	router := mux.NewRouter()
	router.HandleFunc("/api/reports", reportsHandler.CreateReport).Methods(http.MethodPost)
	router.HandleFunc("/api/reports/{id}/download", reportsHandler.DownloadReport).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs", jobsHandler.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}", jobsHandler.GetJob).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(
				middleware.CORS(router),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
