// Package domain holds the livraria document types and their invariants.
package domain

import "time"

// Document provides the identity and timestamps shared by every stored record.
// It is embedded in each persisted domain type.
type Document struct {
	ID        string    `json:"_id" doc:"Document id (24 hex characters)"`
	CreatedAt time.Time `json:"criadoEm" doc:"Creation time"`
	UpdatedAt time.Time `json:"atualizadoEm" doc:"Last update time"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new document.
func (d *Document) InitTimestamps(now time.Time) {
	d.CreatedAt = now
	d.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp.
// Call this whenever the underlying document changes.
func (d *Document) Touch(now time.Time) {
	d.UpdatedAt = now
}
