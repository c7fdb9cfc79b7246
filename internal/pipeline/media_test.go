package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaTypeGuards(t *testing.T) {
	cases := []struct {
		mime  string
		image bool
		audio bool
		video bool
	}{
		{"image/png", true, false, false},
		{"image/jpeg", true, false, false},
		{"image/webp", true, false, false},
		// 前缀匹配但不在白名单内，拒绝
		{"image/tiff", false, false, false},
		{"audio/mpeg", false, true, false},
		{"audio/wav", false, true, false},
		{"audio/ogg", false, true, false},
		{"audio/flac", false, false, false},
		{"video/mp4", false, false, true},
		{"video/quicktime", false, false, true},
		{"video/x-matroska", false, false, false},
		// 与任何媒体类别都不沾边
		{"application/zip", false, false, false},
		{"application/pdf", false, false, false},
		{"text/plain", false, false, false},
		{"", false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			assert.Equal(t, tc.image, IsImageFile(tc.mime), "IsImageFile")
			assert.Equal(t, tc.audio, IsAudioFile(tc.mime), "IsAudioFile")
			assert.Equal(t, tc.video, IsVideoFile(tc.mime), "IsVideoFile")
		})
	}
}

func TestMediaTypeGuardsMutuallyExclusive(t *testing.T) {
	all := []string{
		"image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp",
		"audio/mp3", "audio/mpeg", "audio/wav", "audio/x-wav", "audio/mp4",
		"audio/m4a", "audio/webm", "audio/ogg",
		"video/mp4", "video/avi", "video/quicktime", "video/x-msvideo", "video/webm",
	}
	for _, mime := range all {
		hits := 0
		if IsImageFile(mime) {
			hits++
		}
		if IsAudioFile(mime) {
			hits++
		}
		if IsVideoFile(mime) {
			hits++
		}
		assert.Equal(t, 1, hits, "mime %s 应恰好命中一个类别", mime)
	}
}
