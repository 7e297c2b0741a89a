package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAncestors(t *testing.T) {
	tests := []struct {
		topic string
		want  []string
	}{
		{"car", nil},
		{"car.drive", []string{"car"}},
		{"a.b.c.d", []string{"a.b.c", "a.b", "a"}},
		{"loaded.tm_0", []string{"loaded"}},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, ancestors(tt.topic))
		})
	}
}

func TestIsDescendantOrSelf(t *testing.T) {
	tests := []struct {
		candidate string
		topic     string
		want      bool
	}{
		{"car", "car", true},
		{"car.drive", "car", true},
		{"car.drive.fast", "car", true},
		{"carpet", "car", false},
		{"car", "car.drive", false},
		{"bus.drive", "car", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate+"_"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, isDescendantOrSelf(tt.candidate, tt.topic))
		})
	}
}

func TestNextToken_Monotonic(t *testing.T) {
	a := nextToken()
	b := nextToken()
	assert.NotEqual(t, a, b)
}
