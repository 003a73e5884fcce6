package qrencode

import qrcode "github.com/skip2/go-qrcode"

// Encoder renders KHQR payloads as PNG images sized for chat clients.
type Encoder struct {
	size int
}

func New() Encoder {
	return Encoder{size: 200}
}

func (e Encoder) Encode(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, e.size)
}
