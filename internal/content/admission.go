// Package content decides how an uploaded binary payload is represented
// in storage, based solely on its byte length.
package content

import (
	"errors"
	"fmt"
)

// Default size tiers. The inline threshold leaves a 512 KiB buffer under
// the 16 MiB document ceiling of the original deployment; the upload
// ceiling is an absolute cap independent of storage strategy.
const (
	DefaultInlineThresholdBytes int64 = 16*1024*1024 - 512*1024
	DefaultMaxUploadBytes       int64 = 20 * 1024 * 1024
)

var (
	// ErrPayloadTooLarge reports a payload above the absolute upload ceiling.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum upload size")
	// ErrExternalUnavailable reports an external-tier payload when no
	// external storage backend is wired up.
	ErrExternalUnavailable = errors.New("external storage tier is not available")
)

// Decision is the three-way classification of an admitted payload.
type Decision string

const (
	// DecisionInlineBase64 embeds the payload base64-encoded in the record.
	DecisionInlineBase64 Decision = "inline_base64"
	// DecisionExternalStorage routes the payload to the external blob tier.
	DecisionExternalStorage Decision = "external_storage"
)

// Policy holds the two independent size thresholds. Construct with
// NewPolicy so the threshold relationship is checked once, up front.
type Policy struct {
	InlineThresholdBytes int64
	MaxUploadBytes       int64
}

// NewPolicy validates the threshold relationship and fails fast when the
// three-way split would be meaningless.
func NewPolicy(inlineThresholdBytes, maxUploadBytes int64) (Policy, error) {
	if inlineThresholdBytes <= 0 {
		return Policy{}, fmt.Errorf("inline threshold must be positive, got %d", inlineThresholdBytes)
	}
	if maxUploadBytes <= 0 {
		return Policy{}, fmt.Errorf("max upload size must be positive, got %d", maxUploadBytes)
	}
	if inlineThresholdBytes >= maxUploadBytes {
		return Policy{}, fmt.Errorf("inline threshold %d must be less than max upload size %d", inlineThresholdBytes, maxUploadBytes)
	}
	return Policy{InlineThresholdBytes: inlineThresholdBytes, MaxUploadBytes: maxUploadBytes}, nil
}

// DefaultPolicy returns the policy with the default size tiers.
func DefaultPolicy() Policy {
	return Policy{
		InlineThresholdBytes: DefaultInlineThresholdBytes,
		MaxUploadBytes:       DefaultMaxUploadBytes,
	}
}

// Admit classifies one payload by size. A payload above the ceiling
// fails with ErrPayloadTooLarge; below the inline threshold it is
// embedded inline; at or above the threshold (strict comparison) it
// requires the external tier. One-shot, no partial-success semantics.
func (p Policy) Admit(sizeBytes int64) (Decision, error) {
	if sizeBytes < 0 {
		return "", fmt.Errorf("negative payload size %d", sizeBytes)
	}
	if sizeBytes > p.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, sizeBytes, p.MaxUploadBytes)
	}
	if sizeBytes < p.InlineThresholdBytes {
		return DecisionInlineBase64, nil
	}
	return DecisionExternalStorage, nil
}
