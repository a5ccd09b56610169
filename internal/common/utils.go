// Package common holds small helpers shared by the CLI actions.
package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"tabtriage/models"
)

// NewLogger builds the structured logger used by every action. Quiet mode
// drops everything below Error; logs go to stderr so stdout stays clean
// for JSON output.
func NewLogger(quiet bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if quiet {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// ResolveUserID picks the effective user id: the --user flag when given,
// else the config default. The id must be a UUID.
func ResolveUserID(flagValue string, cfg *models.Config) (string, error) {
	userID := flagValue
	if userID == "" {
		userID = cfg.DefaultUserID
	}
	if userID == "" {
		return "", fmt.Errorf("no user id: pass --user or set default_user_id in config")
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	return userID, nil
}
