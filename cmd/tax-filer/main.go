package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/tax-filer/internal/ledger"
	"github.com/zombor/tax-filer/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("tax-filer")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		ledgerPath    = fs.StringLong("ledger", "tax-records.csv", "Ledger CSV file path")
		dbPath        = fs.StringLong("db", "tax-filer.db", "Receipt archive database file path")
		storagePath   = fs.StringLong("storage", "./receipts", "Receipt image storage directory")
		scannerType   = fs.StringLong("scanner", "openai", "Scanner type: 'openai' or 'gemini'")
		openaiKey     = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiBaseURL = fs.StringLong("openai-base-url", "", "OpenAI-compatible API base URL (optional)")
		openaiModel   = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		scanPath      = fs.StringLong("scan", "", "Scan a single receipt file, print the record, and exit")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TAX_FILER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize ledger
	slog.Info("Initializing ledger...", "path", *ledgerPath)
	csvLedger, err := ledger.NewCSVLedger(*ledgerPath)
	if err != nil {
		slog.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}

	// Initialize receipt archive
	slog.Info("Initializing receipt archive...")
	archive, err := ledger.NewBoltArchive(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize receipt archive", "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	// Initialize scanner based on type. Credentials are checked here, before
	// any request handling begins.
	var scanner scanning.Scanner
	switch *scannerType {
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI scanner...", "model", *openaiModel)
		scanner, err = scanning.NewOpenAI(apiKey, *openaiBaseURL, *openaiModel)
		if err != nil {
			slog.Error("Failed to initialize OpenAI", "error", err)
			os.Exit(1)
		}
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "openai or gemini")
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := ledger.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	service := ledger.NewService(csvLedger, archive, store, scanner)

	// One-shot mode: scan a single file and exit
	if *scanPath != "" {
		processed, err := service.ProcessReceiptFile(*scanPath)
		if err != nil {
			slog.Error("Failed to process receipt", "path", *scanPath, "error", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(processed.Record, "", "  ")
		fmt.Println(string(out))
		return
	}

	// Initialize server
	basicAuth := ledger.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := ledger.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
