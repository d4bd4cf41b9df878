package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/config"
)

func TestNewS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("requires_a_bucket", func(t *testing.T) {
		_, err := NewS3Store(ctx, config.Config{})
		assert.ErrorIs(t, err, ErrNoBucket)
	})

	t.Run("presigns_download_links", func(t *testing.T) {
		var cfg config.Config
		cfg.S3.AccessKeyID = "AKIDEXAMPLE"
		cfg.S3.SecretAccessKey = "secret"
		cfg.S3.Region = "eu-west-1"
		cfg.S3.Bucket = "circulation-content"

		store, err := NewS3Store(ctx, cfg)
		require.NoError(t, err)
		link, err := store.PresignDownload(ctx, "books/abc.pdf", 15*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, link, "circulation-content")
		assert.Contains(t, link, "books/abc.pdf")
		assert.Contains(t, link, "X-Amz-Expires=900")
	})
}

func TestHTTPClientRedirects(t *testing.T) {
	hops := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, server.URL+"/next", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(5 * time.Second)
	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempted redirect")
	assert.Equal(t, 2, hops)
}
