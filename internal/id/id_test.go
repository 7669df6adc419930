package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate("tok")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("tok")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "tok-"))
	assert.Len(t, id, len("tok-")+21)
}

func TestNewObjectID(t *testing.T) {
	a := NewObjectID()
	b := NewObjectID()

	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
	assert.True(t, IsObjectID(a))
}

func TestIsObjectID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"507F1F77BCF86CD799439011", true},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd7994390111", false},
		{"zzzzzzzzzzzzzzzzzzzzzzzz", false},
		{"", false},
		{"123", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsObjectID(tt.in))
		})
	}
}
