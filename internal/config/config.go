// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"
)

// Config holds the application configuration, loaded once at startup and
// passed explicitly; no engine reads the environment directly.
type Config struct {
	TelegramBotToken    string
	AnnouncementsChatID int64
	CallToken           rune
	DatabasePath        string
	LogLevel            string
	Debug               bool
	PollInterval        time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	chatRaw := os.Getenv("ANNOUNCEMENTS_CHAT_ID")
	if chatRaw == "" {
		return nil, fmt.Errorf("ANNOUNCEMENTS_CHAT_ID is required")
	}
	chatID, err := strconv.ParseInt(chatRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ANNOUNCEMENTS_CHAT_ID %q: %w", chatRaw, err)
	}

	callToken, err := parseCallToken(os.Getenv("BOT_CALL_TOKEN"))
	if err != nil {
		return nil, err
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/leekbot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	debug := false
	if raw := os.Getenv("DEBUG"); raw != "" {
		debug, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG %q: %w", raw, err)
		}
	}

	pollInterval := 30 * time.Second
	if raw := os.Getenv("POLL_INTERVAL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be a positive integer, got %q", raw)
		}
		pollInterval = time.Duration(secs) * time.Second
	}

	return &Config{
		TelegramBotToken:    token,
		AnnouncementsChatID: chatID,
		CallToken:           callToken,
		DatabasePath:        dbPath,
		LogLevel:            logLevel,
		Debug:               debug,
		PollInterval:        pollInterval,
	}, nil
}

// parseCallToken validates the command prefix character. Empty defaults to
// '$'; anything longer than one character is a configuration error rather
// than a silent truncation.
func parseCallToken(raw string) (rune, error) {
	if raw == "" {
		return '$', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("BOT_CALL_TOKEN must be a single character, got %q", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return r, nil
}
