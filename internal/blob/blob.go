// Package blob implements opaque binary payloads, such as ciphertexts and
// signatures, with a URL-safe base64 text form.
package blob

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformed is returned when text is not valid URL-safe base64.
var ErrMalformed = errors.New("malformed blob encoding")

// Blob is an arbitrary block of binary data.
type Blob []byte

// Encode returns the padded URL-safe base64 form of b.
func Encode(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// Decode decodes padded URL-safe base64. Input without padding is accepted
// as well.
func Decode(s string) (Blob, error) {
	b, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return Blob(b), nil
	}

	b, rawErr := base64.RawURLEncoding.DecodeString(s)
	if rawErr == nil {
		return Blob(b), nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
}

// Len returns the size of the payload in bytes.
func (b Blob) Len() int {
	return len(b)
}

func (b Blob) String() string {
	return Encode(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b Blob) MarshalText() ([]byte, error) {
	return []byte(Encode(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Blob) UnmarshalText(text []byte) error {
	decoded, err := Decode(string(text))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Ptr returns a pointer to a copy of b, for optional blob fields.
func Ptr(b []byte) *Blob {
	v := make(Blob, len(b))
	copy(v, b)
	return &v
}
