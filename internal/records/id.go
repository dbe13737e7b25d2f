// Package records defines the opaque record identifier used to address
// stored documents.
package records

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	idHexLength   = 24
	idByteLength  = idHexLength / 2
	idMaxAttempts = 20
)

// ErrInvalidID reports a client-supplied identifier that is not a
// well-formed record id.
var ErrInvalidID = errors.New("invalid record id")

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ID is an opaque 24-character lowercase hexadecimal record identifier.
type ID string

// String returns the canonical string form.
func (id ID) String() string {
	return string(id)
}

// ParseID validates a client-supplied identifier. Hex digits of either
// case are accepted and canonicalized to lowercase. Malformed input
// fails with ErrInvalidID; it never panics.
func ParseID(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if !idPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return ID(strings.ToLower(raw)), nil
}

// IsValid reports whether raw is a well-formed record id.
func IsValid(raw string) bool {
	_, err := ParseID(raw)
	return err == nil
}

// NewID returns a fresh random record id.
func NewID() (ID, error) {
	b := make([]byte, idByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return ID(hex.EncodeToString(b)), nil
}

// GenerateID returns a new unique record id, retrying on collisions
// using the provided exists function.
func GenerateID(exists func(ID) (bool, error)) (ID, error) {
	for i := 0; i < idMaxAttempts; i++ {
		id, err := NewID()
		if err != nil {
			return "", err
		}
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique id")
}
