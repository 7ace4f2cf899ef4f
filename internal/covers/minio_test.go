package covers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/covers", PublicBase(Config{Endpoint: "localhost:9000", Bucket: "covers"}))
	assert.Equal(t, "https://s3.example.com/covers", PublicBase(Config{Endpoint: "s3.example.com", Bucket: "covers", UseSSL: true}))
	assert.Equal(t, "https://cdn.example.com", PublicBase(Config{Endpoint: "s3.example.com", Bucket: "covers", PublicURL: "https://cdn.example.com/"}))
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey("65f0c0ffee", "image/png")
	b := ObjectKey("65f0c0ffee", "image/png")

	assert.True(t, strings.HasPrefix(a, "stories/65f0c0ffee/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)

	assert.NotContains(t, ObjectKey("x", "image/unknown-kind"), ".")
}
