package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg, err := BuildMessage(&SendMailInput{
		From:     "bookings@hotel.test",
		FromName: "Hotel",
		To:       []string{"guest@example.com"},
		Subject:  "Booking confirmed",
		Body:     "<p>See you soon</p>",
		Html:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Booking confirmed"}, msg.GetGenHeader("Subject"))
	to := msg.GetToString()
	assert.Contains(t, to[0], "guest@example.com")
}

func TestBuildMessageInvalidRecipient(t *testing.T) {
	_, err := BuildMessage(&SendMailInput{
		From: "bookings@hotel.test",
		To:   []string{"not an address"},
	})
	assert.Error(t, err)
}
