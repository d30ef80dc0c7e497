// Package identifier implements the fixed-width random identity used for
// letters, attachments and the local half of every address.
package identifier

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Size is the length of an Identifier in bytes.
const Size = 24

// TextLength is the length of the canonical text form. 24 is a multiple of 3,
// so the encoding never carries padding.
const TextLength = Size / 3 * 4

// ErrInvalid matches every decoding failure, whichever stage produced it.
var ErrInvalid = errors.New("invalid identifier")

// encoding is the canonical text encoding for identifiers.
var encoding = base64.URLEncoding

// Identifier is a 24 byte (192 bit) locally unique identifier.
type Identifier [Size]byte

// LengthError is returned when decoded input is not exactly Size bytes.
type LengthError struct {
	Length int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("expected %d bytes but got %d", Size, e.Length)
}

// Is reports whether target is ErrInvalid.
func (e *LengthError) Is(target error) bool {
	return target == ErrInvalid
}

// DecodeError is returned when the text form is not valid URL-safe base64.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed identifier encoding: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalid.
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalid
}

// New generates a new random identifier. Uniqueness against previously
// generated identifiers is not checked.
func New() Identifier {
	var id Identifier
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("identifier: failed to read random bytes: %v", err))
	}
	return id
}

// FromBytes copies b into an Identifier.
func FromBytes(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != Size {
		return id, &LengthError{Length: len(b)}
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes the canonical text form of an identifier. Input that is not
// exactly TextLength characters, or that contains CR or LF (which the base64
// decoder would otherwise skip), is a *DecodeError.
func Parse(s string) (Identifier, error) {
	if len(s) != TextLength {
		return Identifier{}, &DecodeError{
			Err: fmt.Errorf("expected %d characters but got %d", TextLength, len(s)),
		}
	}
	if strings.ContainsAny(s, "\r\n") {
		return Identifier{}, &DecodeError{Err: errors.New("line breaks are not allowed")}
	}
	b, err := encoding.DecodeString(s)
	if err != nil {
		return Identifier{}, &DecodeError{Err: err}
	}
	return FromBytes(b)
}

// String returns the canonical URL-safe base64 form.
func (id Identifier) String() string {
	return encoding.EncodeToString(id[:])
}

// Bytes returns a copy of the raw identifier bytes.
func (id Identifier) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// IsZero reports whether every byte of the identifier is zero.
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
