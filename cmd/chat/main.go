package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/chatui"
	"github.com/quillchat/quill/internal/client"
	"github.com/quillchat/quill/internal/utils"
)

func main() {
	_ = godotenv.Load()

	serverURL := os.Getenv("QUILL_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	logger := zap.NewNop()
	if path := os.Getenv("QUILL_LOG_FILE"); path != "" {
		fileLogger, err := utils.NewFileLogger(utils.LoggingConfig{
			Level:       os.Getenv("LOG_LEVEL"),
			Encoding:    "json",
			ServiceName: "quill-chat",
		}, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		logger = fileLogger
	}
	defer logger.Sync()

	tokens, err := client.NewTokenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise token store: %v\n", err)
		os.Exit(1)
	}

	api := client.New(serverURL)

	program := tea.NewProgram(chatui.NewApp(api, tokens, logger.Sugar()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat client error: %v\n", err)
		os.Exit(1)
	}
}
