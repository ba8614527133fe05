package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestSize_Names(t *testing.T) {
	tests := []struct {
		size   TestSize
		name   string
		marker string
		label  string
	}{
		{SizeSmall, "SMALL", "small", "[SMALL]"},
		{SizeMedium, "MEDIUM", "medium", "[MEDIUM]"},
		{SizeLarge, "LARGE", "large", "[LARGE]"},
		{SizeXLarge, "XLARGE", "xlarge", "[XLARGE]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.size.Name())
			assert.Equal(t, tt.marker, tt.size.MarkerName())
			assert.Equal(t, tt.label, tt.size.Label())
			assert.Equal(t, "mark test as "+tt.name+" size", tt.size.Description())
		})
	}
}

func TestTestSize_Ordering(t *testing.T) {
	for i := 1; i < len(Sizes); i++ {
		if Sizes[i-1].Rank() >= Sizes[i].Rank() {
			t.Fatalf("sizes out of order: %s >= %s", Sizes[i-1], Sizes[i])
		}
	}
}

func TestParseSize(t *testing.T) {
	s, ok := ParseSize("medium")
	assert.True(t, ok)
	assert.Equal(t, SizeMedium, s)

	_, ok = ParseSize("huge")
	assert.False(t, ok)

	assert.False(t, TestSize("").Valid())
	assert.True(t, SizeXLarge.Valid())
}
