package common

import (
	"crypto/rand"
	"encoding/hex"
	"slices"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result is
// 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n random bytes. It panics only if the system
// random source is broken.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// IsSupportedAudioFormat reports whether ext is one of SupportedAudioFormats.
func IsSupportedAudioFormat(ext string) bool {
	return slices.Contains(SupportedAudioFormats, ext)
}

var audioContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
}

// AudioContentType returns the MIME type for an audio extension. Unknown
// extensions map to "audio/{ext}" so the processor still sees an audio part.
func AudioContentType(ext string) string {
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ext == "" {
		return "application/octet-stream"
	}
	return "audio/" + ext
}
