package model

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAttachment(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want MediaKind
	}{
		{name: "empty", ref: "", want: MediaNone},
		{name: "image data uri", ref: "data:image/png;base64,aGVsbG8=", want: MediaImage},
		{name: "video data uri", ref: "data:video/mp4;base64,aGVsbG8=", want: MediaVideo},
		{name: "uppercase data uri", ref: "DATA:IMAGE/JPEG;base64,aGVsbG8=", want: MediaImage},
		{name: "image url", ref: "https://cdn.example.com/photo.jpg", want: MediaImage},
		{name: "webp url", ref: "https://cdn.example.com/photo.webp", want: MediaImage},
		{name: "video url", ref: "http://cdn.example.com/clip.mp4", want: MediaVideo},
		{name: "url without media extension", ref: "https://example.com/page.html", want: MediaUnknown},
		{name: "audio data uri", ref: "data:audio/mp3;base64,aGVsbG8=", want: MediaUnknown},
		{name: "plain text", ref: "just some text", want: MediaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAttachment(tt.ref))
		})
	}
}

func TestAttachmentByteSize(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello capsule"))

	tests := []struct {
		name string
		ref  string
		want int64
	}{
		{
			name: "base64 data uri uses decoded length",
			ref:  "data:image/png;base64," + payload,
			want: int64(base64.StdEncoding.DecodedLen(len(payload))),
		},
		{
			name: "plain data uri uses payload length",
			ref:  "data:text/plain,hello",
			want: 5,
		},
		{
			name: "url uses reference length",
			ref:  "https://cdn.example.com/photo.jpg",
			want: int64(len("https://cdn.example.com/photo.jpg")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttachmentByteSize(tt.ref))
		})
	}
}

func TestHashRecipient(t *testing.T) {
	base := HashRecipient("friend@example.com")

	assert.Len(t, base, 64)
	assert.Equal(t, base, HashRecipient("  Friend@Example.COM  "))
	assert.NotEqual(t, base, HashRecipient("other@example.com"))
	assert.Equal(t, strings.ToLower(base), base)
}

func TestParsePlanTier(t *testing.T) {
	assert.Equal(t, PlanTimeKeeper, ParsePlanTier("TimeKeeper"))
	assert.Equal(t, PlanTimeLord, ParsePlanTier(" timelord "))
	assert.Equal(t, PlanFree, ParsePlanTier("free"))
	assert.Equal(t, PlanFree, ParsePlanTier("platinum"))
	assert.Equal(t, PlanFree, ParsePlanTier(""))
}
