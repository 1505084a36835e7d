package labels

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"

	"warehouse-inventory-api/internal/models"
)

// CodeRenderer turns a code value into a PNG image
type CodeRenderer interface {
	Render(value string, codeType models.CodeType) ([]byte, error)
}

// BarcodeRenderer draws Code 128 barcodes and QR codes.
type BarcodeRenderer struct{}

func (BarcodeRenderer) Render(value string, codeType models.CodeType) ([]byte, error) {
	var (
		code barcode.Barcode
		err  error
		w, h int
	)
	switch codeType {
	case models.CodeQR:
		code, err = qr.Encode(value, qr.M, qr.Auto)
		w, h = 160, 160
	case models.CodeBarcode128, "":
		code, err = code128.Encode(value)
		if err == nil {
			w, h = max(code.Bounds().Dx()*3, 240), 80
		}
	default:
		return nil, fmt.Errorf("unsupported code type %q", codeType)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", codeType, err)
	}

	scaled, err := barcode.Scale(code, w, h)
	if err != nil {
		return nil, fmt.Errorf("scaling %s: %w", codeType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
