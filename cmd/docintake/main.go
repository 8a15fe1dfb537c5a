package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/solivar/docintake/internal/config"
	"github.com/solivar/docintake/internal/consolidate"
	"github.com/solivar/docintake/internal/extract"
	"github.com/solivar/docintake/internal/ocr"
	"github.com/solivar/docintake/internal/pipeline"
	"github.com/solivar/docintake/internal/raster"
	"github.com/solivar/docintake/internal/server"
	"github.com/solivar/docintake/internal/workflow"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("docintake %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("docintake - document intake and review workflow server")
			fmt.Println()
			fmt.Println("Usage: docintake [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  DOCINTAKE_CONFIG=path        YAML config file")
			fmt.Println("  DOCINTAKE_STORE_ROOT=dir     Workflow storage root")
			fmt.Println("  DOCINTAKE_GENERATOR_URL=url  Text-generation chat endpoint")
			fmt.Println("  DOCINTAKE_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via JSON-RPC over stdin/stdout.")
			return
		}
	}

	// Configure logging to stderr (stdout carries the protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(os.Getenv("DOCINTAKE_CONFIG"))
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if os.Getenv("DOCINTAKE_LOG_LEVEL") == "debug" {
		log.Printf("docintake v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("store root %s, generator %s (%s)", cfg.StoreRoot, cfg.Generator.URL, cfg.Generator.Model)
	}

	engine, err := ocr.NewEngine(cfg.OCR.Languages...)
	if err != nil {
		log.Fatalf("OCR engine error: %v", err)
	}
	defer engine.Close()

	store, err := workflow.NewDirStore(cfg.StoreRoot)
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}

	client := extract.NewClient(cfg.Generator.URL, cfg.Generator.Model,
		time.Duration(cfg.Generator.TimeoutSeconds)*time.Second)
	extractor := extract.NewExtractor(client, cfg.Extract.MaxChars)

	pipe := pipeline.New(engine, extractor, store, pipeline.Options{
		Raster:      raster.Options{DPI: cfg.Raster.DPI, MaxPages: cfg.Raster.MaxPages},
		Country:     cfg.MRZ.CountryCode,
		BirthPivot:  cfg.MRZ.BirthYearPivot,
		Consolidate: consolidate.Options{OverrideBirthDate: cfg.MRZ.OverrideBirthDate},
	})

	srv := server.New(pipe, workflow.NewService(store))
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
