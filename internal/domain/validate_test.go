package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ada@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"nope", false},
		{"Mallory <mallory@example.com>", false},
		{"<mallory@example.com>", false},
		{"a@b@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.in))
		})
	}
}
