package qr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// QRGenerator issues opaque ticket codes and renders them as QR images.
// The code carries no ticket data; it is only a lookup key.
type QRGenerator struct {
	prefix string
	size   int
}

func NewQRGenerator(prefix string, size int) *QRGenerator {
	if size <= 0 {
		size = defaultSize
	}
	return &QRGenerator{prefix: prefix, size: size}
}

// NewCode returns a fresh 128-bit random code, e.g. "CE-3f1c...".
func (q *QRGenerator) NewCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if q.prefix == "" {
		return raw
	}
	return q.prefix + "-" + raw
}

// EncodePNG renders code as a PNG QR image.
func (q *QRGenerator) EncodePNG(code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("empty ticket code")
	}
	return qrcode.Encode(code, qrcode.Medium, q.size)
}
