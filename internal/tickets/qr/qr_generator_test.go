package qr_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"campus-events/internal/tickets/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode_IsPrefixedAndUnique(t *testing.T) {
	gen := qr.NewQRGenerator("CE", 0)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := gen.NewCode()
		assert.True(t, strings.HasPrefix(code, "CE-"), code)
		assert.Len(t, code, len("CE-")+32)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNewCode_WithoutPrefix(t *testing.T) {
	code := qr.NewQRGenerator("", 0).NewCode()
	assert.Len(t, code, 32)
	assert.NotContains(t, code, "-")
}

func TestEncodePNG(t *testing.T) {
	gen := qr.NewQRGenerator("CE", 200)

	pngBytes, err := gen.EncodePNG(gen.NewCode())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestEncodePNG_EmptyCode(t *testing.T) {
	_, err := qr.NewQRGenerator("CE", 0).EncodePNG("")
	assert.Error(t, err)
}
