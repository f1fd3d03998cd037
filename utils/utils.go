// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// NormalizeEmail lowercases and trims a subscriber address so the same
// mailbox always maps to the same recipient and blacklist rows.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
