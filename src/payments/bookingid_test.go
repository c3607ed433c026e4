package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBookingID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, err := NewBookingID()
		assert.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{10}$`, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 195)
}
