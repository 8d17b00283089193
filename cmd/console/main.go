package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL   string
	Timeout      time.Duration
	PollInterval time.Duration
	DocumentPath string // uploaded with the u key
	ExportDir    string // where transcripts are written
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:      30 * time.Second,
		PollInterval: 100 * time.Millisecond,
		DocumentPath: os.Getenv("CASE_DOCUMENT"),
		ExportDir:    ".",
	}
	flag.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "battle API base URL")
	flag.StringVar(&cfg.DocumentPath, "doc", cfg.DocumentPath, "case document to upload (PDF, DOC, DOCX or TXT)")
	flag.StringVar(&cfg.ExportDir, "out", cfg.ExportDir, "directory for exported transcripts")
	flag.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "how often to refresh the battle view")
	flag.Parse()

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: go run ./cmd/api\n")
		os.Exit(1)
	}

	api := &apiClient{client: client, baseURL: cfg.APIBaseURL}
	p := tea.NewProgram(NewConsoleUI(cfg, api),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
