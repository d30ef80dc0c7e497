// Package mail defines the sealed letter and its attachments, the core data
// model received by the relay.
package mail

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/blob"
	"github.com/shineum/sealed-relay/internal/identifier"
)

// ErrMissingID is returned when a wire payload has no letter identifier.
var ErrMissingID = errors.New("letter id is required")

// ErrTrailingData is returned when a wire payload continues past the letter.
var ErrTrailingData = errors.New("unexpected data after letter")

// Labels are free-form key/value annotations on a letter or attachment.
type Labels map[string]string

// Letter is a letter that has been partially encrypted by the client.
type Letter struct {
	// ID is the locally unique identifier of the letter.
	ID identifier.Identifier `json:"id"`

	// Sender is the return address, such as for undeliverable mail.
	// A nil Sender marks an anonymous letter.
	Sender *address.Address `json:"sender,omitempty"`

	Recipients  []address.Address `json:"recipients"`
	Attachments *Attachments      `json:"attachments,omitempty"`
	Labels      Labels            `json:"labels,omitempty"`

	// Subject and Body are encrypted by the client.
	Subject *blob.Blob `json:"subject,omitempty"`
	Body    *blob.Blob `json:"body,omitempty"`

	Signature *blob.Blob `json:"signature,omitempty"`
}

// Anonymous reports whether the letter has no return address.
func (l *Letter) Anonymous() bool {
	return l.Sender == nil
}

// Signed reports whether the letter carries a signature.
func (l *Letter) Signed() bool {
	return l.Signature != nil
}

// DecodeLetter reads a JSON wire payload holding exactly one letter,
// optionally followed by whitespace. Unknown fields are ignored and absent
// optional fields stay absent. Codec failures are returned wrapped so callers
// can match them with errors.Is.
func DecodeLetter(r io.Reader) (*Letter, error) {
	var wire struct {
		Letter
		ID *identifier.Identifier `json:"id"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode letter: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil && !isSyntaxError(err) {
			return nil, fmt.Errorf("failed to decode letter: %w", err)
		}
		return nil, fmt.Errorf("%w at offset %d", ErrTrailingData, dec.InputOffset())
	}
	if wire.ID == nil {
		return nil, ErrMissingID
	}

	letter := wire.Letter
	letter.ID = *wire.ID
	return &letter, nil
}

func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr)
}

// SampleLetter returns a fully populated letter addressed on host, with one
// embedded and one remote attachment, all signed.
func SampleLetter(host string) *Letter {
	sender := address.New(identifier.New(), host)
	empty := blob.Ptr(nil)

	return &Letter{
		ID:     identifier.New(),
		Sender: &sender,
		Recipients: []address.Address{
			address.New(identifier.New(), host),
		},
		Attachments: &Attachments{
			Embedded: []Embedded{{
				Meta: Meta{ID: identifier.New(), Signature: empty},
				Data: blob.Blob{},
			}},
			Remote: []Remote{{
				Meta:    Meta{ID: identifier.New(), Signature: empty},
				Address: address.New(identifier.New(), host),
			}},
		},
		Labels:    Labels{},
		Subject:   empty,
		Body:      empty,
		Signature: empty,
	}
}
