package media

import (
	"bytes"
	"errors"
	"strings"
)

type Type string

const (
	TypeJPEG Type = "jpeg"
	TypePNG  Type = "png"
	TypeGIF  Type = "gif"
	TypeWEBP Type = "webp"
	TypeAVIF Type = "avif"
	TypeSVG  Type = "svg"
)

var ErrUnknownType = errors.New("unknown media type")

const sniffLen = 512

type Detected struct {
	Type Type
	MIME string
}

// Detect looks at the first bytes of a file only; the extension plays no
// part.
func Detect(data []byte) (Detected, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) == 0 {
		return Detected{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Detected{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Detected{Type: TypePNG, MIME: "image/png"}, nil
	case isGIF(head):
		return Detected{Type: TypeGIF, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Detected{Type: TypeWEBP, MIME: "image/webp"}, nil
	case isAVIF(head):
		return Detected{Type: TypeAVIF, MIME: "image/avif"}, nil
	case isSVG(head):
		return Detected{Type: TypeSVG, MIME: "image/svg+xml"}, nil
	}
	return Detected{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func isPNG(head []byte) bool {
	return bytes.HasPrefix(head, pngMagic)
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

func isAVIF(head []byte) bool {
	return len(head) >= 12 && string(head[4:8]) == "ftyp" && bytes.Contains(head[8:], []byte("avif"))
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}
