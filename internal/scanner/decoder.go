package scanner

import (
	"errors"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode means the frame holds no readable QR code.
var ErrNoCode = errors.New("no QR code in frame")

type Decoder interface {
	Decode(img image.Image) (string, error)
}

// ZXingDecoder reads QR codes with gozxing.
type ZXingDecoder struct {
	TryHarder bool
}

func (d ZXingDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if d.TryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		var re gozxing.ReaderException
		if errors.As(err, &re) {
			return "", ErrNoCode
		}
		return "", err
	}

	text := strings.TrimSpace(result.GetText())
	if text == "" {
		return "", ErrNoCode
	}
	return text, nil
}
