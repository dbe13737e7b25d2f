package models

import (
	"fmt"
	"strings"
	"time"
)

// AssetKind distinguishes the two asset collections.
type AssetKind string

const (
	AssetKindSprite AssetKind = "sprite"
	AssetKindAudio  AssetKind = "audio"
)

// StorageTier records how asset content is persisted.
type StorageTier string

const (
	// StorageTierInline embeds the content base64-encoded in the asset row.
	StorageTierInline StorageTier = "inline"
	// StorageTierExternal stores the content in the blob tier and keeps a
	// blob reference on the asset row.
	StorageTierExternal StorageTier = "external"
)

var validAssetKinds = map[AssetKind]struct{}{
	AssetKindSprite: {},
	AssetKindAudio:  {},
}

var validStorageTiers = map[StorageTier]struct{}{
	StorageTierInline:   {},
	StorageTierExternal: {},
}

// Asset is a stored game asset: sprite image or audio clip.
type Asset struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	UploadDate  time.Time `json:"upload_date"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageTier string    `json:"storage_tier"`
	Content     string    `json:"content,omitempty"` // base64, inline tier only
	BlobID      string    `json:"blob_id,omitempty"` // external tier only
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
}

// DefaultContentType returns the fallback media type for a kind.
func (k AssetKind) DefaultContentType() string {
	if k == AssetKindAudio {
		return "audio/wav"
	}
	return "image/png"
}

// DefaultDescription returns the fallback description for a filename.
func (k AssetKind) DefaultDescription(filename string) string {
	if k == AssetKindAudio {
		return fmt.Sprintf("Audio file: %s", filename)
	}
	return fmt.Sprintf("Sprite image: %s", filename)
}

func ParseAssetKind(raw string) (AssetKind, error) {
	value := AssetKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("asset kind is required")
	}
	if _, ok := validAssetKinds[value]; !ok {
		return "", fmt.Errorf("invalid asset kind: %s", value)
	}
	return value, nil
}

func ParseStorageTier(raw string) (StorageTier, error) {
	value := StorageTier(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("storage tier is required")
	}
	if _, ok := validStorageTiers[value]; !ok {
		return "", fmt.Errorf("invalid storage tier: %s", value)
	}
	return value, nil
}
