package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestR2Client_PublicURL(t *testing.T) {
	client, err := NewR2Client(context.Background(), R2Config{
		AccountID:       "acct",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "progression",
		CDNBaseURL:      "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/badges/week-warrior.png", client.PublicURL("badges/week-warrior.png"))
	assert.Equal(t, "https://cdn.example.com/seed.json", client.PublicURL("/../seed.json"))

	direct, err := NewR2Client(context.Background(), R2Config{AccountID: "acct", Bucket: "progression"})
	require.NoError(t, err)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com/progression/a.png", direct.PublicURL("a.png"))
}
