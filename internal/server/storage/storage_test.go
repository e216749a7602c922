package storage

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	re := regexp.MustCompile(`^user:7/audio-file/[0-9a-f-]{36}\.mp3$`)

	assert.Regexp(t, re, NewObjectKey(7, CategoryAudio, "mp3"))
	assert.Regexp(t, re, NewObjectKey(7, CategoryAudio, ".MP3"))
	assert.Regexp(t, `^user:7/profile-picture/[0-9a-f-]{36}$`, NewObjectKey(7, CategoryProfilePicture, ""))
	assert.NotEqual(t, NewObjectKey(1, CategoryAudio, "wav"), NewObjectKey(1, CategoryAudio, "wav"))
}

func TestURLScheme_RoundTrip(t *testing.T) {
	u := newURLScheme("http://minio:9000/", "sound")

	url := u.url("user:1/audio-file/a.mp3")
	assert.Equal(t, "http://minio:9000/sound/user:1/audio-file/a.mp3", url)

	key, err := u.key(url)
	require.NoError(t, err)
	assert.Equal(t, "user:1/audio-file/a.mp3", key)
}

func TestURLScheme_ForeignURL(t *testing.T) {
	u := newURLScheme("http://minio:9000", "sound")

	for _, in := range []string{"", "http://other/sound/k", "http://minio:9000/other/k", "http://minio:9000/sound/"} {
		_, err := u.key(in)
		assert.True(t, errors.Is(err, ErrForeignURL), "input %q", in)
	}
}
