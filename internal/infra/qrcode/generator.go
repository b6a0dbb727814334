package qrcode

import (
	"errors"
	"strings"

	"telegram-channel-subscription/internal/domain/ports/adapter"

	skipqrcode "github.com/skip2/go-qrcode"
)

var ErrEmptyContent = errors.New("qr content cannot be empty")

const defaultSize = 300

// Generator renders payment URIs as PNG QR codes.
type Generator struct{}

var _ adapter.QRGenerator = (*Generator)(nil)

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(errors.New("generate qr code"), err)
	}
	return png, nil
}
