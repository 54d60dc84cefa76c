package model

import (
	"encoding/base64"
	"strings"
)

// MediaKind tags an attachment's classified type.
type MediaKind string

const (
	// MediaNone means the capsule has no attachment.
	MediaNone MediaKind = ""
	// MediaImage is an image attachment.
	MediaImage MediaKind = "image"
	// MediaVideo is a video attachment.
	MediaVideo MediaKind = "video"
	// MediaUnknown is an attachment that could not be classified; entitlement
	// checks reject it rather than treating it as an image.
	MediaUnknown MediaKind = "unknown"
)

// ClassifyAttachment inspects the leading content-type marker of an
// attachment reference (a data URI, or a URL with a recognizable extension)
// and returns its media kind. Total over all inputs.
func ClassifyAttachment(ref string) MediaKind {
	if ref == "" {
		return MediaNone
	}
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:image/"):
		return MediaImage
	case strings.HasPrefix(lower, "data:video/"):
		return MediaVideo
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		switch {
		case hasAnySuffix(lower, ".jpg", ".jpeg", ".png", ".gif", ".webp"):
			return MediaImage
		case hasAnySuffix(lower, ".mp4", ".webm", ".mov"):
			return MediaVideo
		}
	}
	return MediaUnknown
}

// AttachmentByteSize estimates the decoded payload size of an attachment
// reference. For base64 data URIs this is the decoded length; for anything
// else the reference length itself.
func AttachmentByteSize(ref string) int64 {
	payload := ref
	if idx := strings.Index(ref, ","); idx >= 0 && strings.HasPrefix(strings.ToLower(ref), "data:") {
		payload = ref[idx+1:]
		if strings.Contains(strings.ToLower(ref[:idx]), ";base64") {
			return int64(base64.StdEncoding.DecodedLen(len(payload)))
		}
	}
	return int64(len(payload))
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
