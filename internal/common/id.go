package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique workflow run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewUserID generates a unique user ID with the "user_" prefix
func NewUserID() string {
	return "user_" + uuid.New().String()
}
