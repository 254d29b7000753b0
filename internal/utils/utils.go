package utils

import "github.com/google/uuid"

// GenerateUUID returns a random v4 UUID string for primary keys.
func GenerateUUID() string {
	return uuid.New().String()
}
