package mail

import (
	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/blob"
	"github.com/shineum/sealed-relay/internal/identifier"
)

// Kind identifies the shape of an attachment.
type Kind string

const (
	// KindEmbedded attachments carry their encrypted data inline.
	KindEmbedded Kind = "embedded"

	// KindRemote attachments live on a remote host and are fetched out-of-band.
	KindRemote Kind = "remote"

	// KindLocal attachments are resident on this host.
	KindLocal Kind = "local"
)

// Meta is the capability set shared by every attachment shape.
type Meta struct {
	// ID is a locally unique identifier for the attachment.
	ID identifier.Identifier `json:"id"`

	// Size is the declared size of the attachment in bytes.
	Size uint64 `json:"size"`

	Labels Labels `json:"labels,omitempty"`

	// Signature is nil for unsigned attachments.
	Signature *blob.Blob `json:"signature,omitempty"`
}

// Metadata returns the shared attachment fields.
func (m Meta) Metadata() Meta {
	return m
}

// Signed reports whether the attachment carries a signature.
func (m Meta) Signed() bool {
	return m.Signature != nil
}

// Attachment is implemented by Embedded, Remote and Local only.
type Attachment interface {
	Kind() Kind
	Metadata() Meta
	Signed() bool

	attachment()
}

// Embedded is a sealed attachment provided inline as part of a letter.
type Embedded struct {
	Meta

	// Data is the encrypted attachment data.
	Data blob.Blob `json:"data"`
}

// Remote is a sealed attachment known to exist only on a remote host.
type Remote struct {
	Meta

	// Address is where the attachment can be fetched from.
	Address address.Address `json:"address"`
}

// Local is a sealed attachment resident on this host.
type Local struct {
	Meta

	// Address is where the attachment came from.
	Address address.Address `json:"address"`

	Data blob.Blob `json:"data"`
}

func (Embedded) Kind() Kind { return KindEmbedded }
func (Remote) Kind() Kind   { return KindRemote }
func (Local) Kind() Kind    { return KindLocal }

func (Embedded) attachment() {}
func (Remote) attachment()   {}
func (Local) attachment()    {}

// Localize makes an embedded attachment resident on this host, recording
// origin as the address it came from.
func Localize(e Embedded, origin address.Address) Local {
	return Local{
		Meta:    e.Meta,
		Address: origin,
		Data:    e.Data,
	}
}

// Attachments holds every attachment of a letter, grouped by shape as they
// appear on the wire.
type Attachments struct {
	Embedded []Embedded `json:"embedded,omitempty"`
	Remote   []Remote   `json:"remote,omitempty"`
}

// Len returns the total number of attachments. A nil collection is empty.
func (a *Attachments) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Embedded) + len(a.Remote)
}

// AllSigned reports whether every embedded and remote attachment carries a
// signature. An absent or empty collection is vacuously signed.
func (a *Attachments) AllSigned() bool {
	for _, att := range a.All() {
		if !att.Signed() {
			return false
		}
	}
	return true
}

// All returns every attachment, embedded ones first.
func (a *Attachments) All() []Attachment {
	if a == nil {
		return nil
	}
	all := make([]Attachment, 0, a.Len())
	for _, e := range a.Embedded {
		all = append(all, e)
	}
	for _, r := range a.Remote {
		all = append(all, r)
	}
	return all
}
