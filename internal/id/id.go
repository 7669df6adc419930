// Package id generates and checks identifiers.
//
// Documents are keyed by 24-hex ObjectIDs in every storage backend so that a
// malformed id can be rejected before any query runs. Short opaque ids (token
// ids) use NanoID.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "tok-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewObjectID returns a fresh document id as 24 lowercase hex characters.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}

// IsObjectID reports whether s is a well-formed document id.
func IsObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
