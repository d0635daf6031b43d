package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPartner(t *testing.T) {
	msg := NewTextMessage("a1", "b1", "hi")
	require.Equal(t, "b1", msg.Partner("a1"))
	require.Equal(t, "a1", msg.Partner("b1"))
}

func TestIsPhoto(t *testing.T) {
	require.False(t, NewTextMessage("a1", "b1", "hi").IsPhoto())
	require.True(t, NewPhotoMessage("a1", "b1", "/tmp/p.jpg").IsPhoto())

	// Legacy records without a type field classify by fileName.
	require.True(t, Message{FileName: "k1"}.IsPhoto())
	require.False(t, Message{Data: "hi"}.IsPhoto())
}

func TestLastSeenStatus(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "last seen 1717243200", LastSeenStatus(at))
}

func TestProfileComplete(t *testing.T) {
	p := ProfileUser{
		User:      User{ID: "a1", Username: "alice"},
		FirstName: "Alice",
		LastName:  "Park",
		Gender:    "female",
	}
	require.True(t, p.Complete())

	p.Gender = " "
	require.False(t, p.Complete())
}
