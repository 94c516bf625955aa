package entity

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBytea(t *testing.T) {
	sealed := []byte{0x00, 0x9f, 0xff, 0x10, 0x42, 0x7e, 0x01, 0xc3}
	encoded := base64.StdEncoding.EncodeToString(sealed)

	tests := []struct {
		name  string
		value string
		want  []byte
	}{
		{"base64 text", encoded, sealed},
		{"hex of raw bytes", `\x` + hex.EncodeToString(sealed), sealed},
		{"hex of base64 text", `\x` + hex.EncodeToString([]byte(encoded)), sealed},
		{"bad hex", `\xzz`, nil},
		{"garbage", "not base64!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeBytea(tt.value))
		})
	}
}
