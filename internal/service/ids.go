package service

import "github.com/google/uuid"

// newID generates a unique identifier for jobs and download records.
func newID() string {
	return uuid.New().String()
}
