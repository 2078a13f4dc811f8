package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/byru-rnd/kasbon-analytics/internal/delivery"
	"github.com/byru-rnd/kasbon-analytics/internal/format"
	"github.com/byru-rnd/kasbon-analytics/internal/logger"
	"github.com/byru-rnd/kasbon-analytics/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(log)
	case "deliver":
		runDeliver(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Kasbon Analytics CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate  Generate the analytic report from a local CSV/XLSX export")
	fmt.Println("  deliver   Upload a finished report to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runGenerate(log zerolog.Logger) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	input := fs.String("input", "", "Path to the kasbon export (.csv or .xlsx)")
	out := fs.String("out", "reports", "Directory for report and chart artifacts")
	fs.Parse(os.Args[2:])

	if *input == "" {
		log.Fatal().Msg("Error: --input is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	runID := uuid.New().String()
	log.Info().Str("input", *input).Str("run_id", runID).Msg("Generating report")

	p := pipeline.New(*out, nil, nil)
	state, err := p.Run(ctx, *input, filepath.Base(*input), runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Report generation failed")
	}

	combined := state.Metrics[0]
	fmt.Println("\n=== Ringkasan ===")
	fmt.Printf("Periode:        %s - %s\n", state.Dataset.PeriodStart, state.Dataset.PeriodEnd)
	fmt.Printf("Total kasbon:   %s\n", format.Rupiah(combined.TotalAmount))
	fmt.Printf("Transaksi:      %s\n", format.Int(combined.TxCount))
	fmt.Printf("User unik:      %s\n", format.Int(combined.UniqueUsers))
	if state.Dataset.DroppedRows > 0 {
		fmt.Printf("Baris dibuang:  %s\n", format.Int(state.Dataset.DroppedRows))
	}
	fmt.Printf("\nReport: %s\n", state.ReportPath)
}

func runDeliver(log zerolog.Logger) {
	fs := flag.NewFlagSet("deliver", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local report file")
	credentials := fs.String("credentials", "", "Service account credentials file (optional)")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli deliver -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	uploader, err := delivery.NewGCSUploader(ctx, *bucketName, "", *credentials)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create uploader")
	}
	defer uploader.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading report to GCS")

	uri, err := uploader.Upload(ctx, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}
