package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/print/ordo?month=3&year=2026", PageURL("http://127.0.0.1:8080", 3, 2026))
}

func TestCapturePNG_RequiresURLAndOutput(t *testing.T) {
	err := CapturePNG(context.Background(), Options{OutputPath: "x.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = CapturePNG(context.Background(), Options{URL: "http://localhost"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
