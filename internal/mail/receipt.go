package mail

import (
	"time"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/identifier"
)

// Receipt acknowledges a letter the relay accepted.
type Receipt struct {
	LetterID   identifier.Identifier `json:"letter_id"`
	Sender     *address.Address      `json:"sender,omitempty"`
	Recipients []address.Address     `json:"recipients"`

	// Attachments holds local copies of embedded attachments followed by
	// the remote references, as the relay now tracks them.
	Attachments []Attachment `json:"-"`

	Labels Labels `json:"labels,omitempty"`

	// Count is the received counter value after this letter.
	Count      uint64    `json:"count"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewReceipt builds the receipt for letter. Embedded attachments become
// Local attachments originating from the sender, or from origin when the
// letter is anonymous.
func NewReceipt(letter *Letter, origin address.Address, count uint64, at time.Time) *Receipt {
	if letter.Sender != nil {
		origin = *letter.Sender
	}

	var attachments []Attachment
	if letter.Attachments != nil {
		attachments = make([]Attachment, 0, letter.Attachments.Len())
		for _, e := range letter.Attachments.Embedded {
			attachments = append(attachments, Localize(e, origin))
		}
		for _, r := range letter.Attachments.Remote {
			attachments = append(attachments, r)
		}
	}

	return &Receipt{
		LetterID:    letter.ID,
		Sender:      letter.Sender,
		Recipients:  letter.Recipients,
		Attachments: attachments,
		Labels:      letter.Labels,
		Count:       count,
		ReceivedAt:  at,
	}
}

// AttachmentBytes returns the sum of declared attachment sizes.
func (r *Receipt) AttachmentBytes() uint64 {
	var total uint64
	for _, a := range r.Attachments {
		total += a.Metadata().Size
	}
	return total
}
