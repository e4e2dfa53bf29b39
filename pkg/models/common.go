package models

import "github.com/google/uuid"

// NewUUID returns a fresh identifier for alerts, incidents, workflows and
// scaling decisions.
func NewUUID() string {
	return uuid.New().String()
}
