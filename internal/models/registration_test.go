package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		email    string
		want     string
	}{
		{"first name", "Jamie Rivera", "jamie@example.com", "Jamie"},
		{"single name", "Jamie", "jamie@example.com", "Jamie"},
		{"email local part", "", "jamie.r@example.com", "jamie.r"},
		{"whitespace name falls back", "   ", "jamie@example.com", "jamie"},
		{"nothing usable", "", "", "Guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Registration{FullName: tt.fullName, Email: tt.email}
			assert.Equal(t, tt.want, r.DisplayName())
		})
	}
}
