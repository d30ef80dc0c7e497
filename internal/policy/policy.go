// Package policy defines the site-configured acceptance policy a letter must
// satisfy before the relay receives it.
package policy

import "sort"

// Default ceilings for the limit axis.
const (
	DefaultRecipients             = 100
	DefaultSubjectSize            = 1024
	DefaultBodySize               = 256 * 1024
	DefaultEmbeddedAttachments    = 100
	DefaultEmbeddedAttachmentSize = 256 * 1024
	DefaultRemoteAttachments      = 100
	DefaultRemoteAttachmentSize   = 512 * 1024 * 1024
	DefaultLabels                 = 1000
)

// Policy is the complete acceptance policy. It is loaded once at startup and
// treated as read-only afterwards.
type Policy struct {
	Accept  Accept  `yaml:"accept" json:"accept"`
	Require Require `yaml:"require" json:"require"`
	Limit   Limit   `yaml:"limit" json:"limit"`
}

// Accept holds permissive toggles.
type Accept struct {
	// AnonymousSender accepts letters without a return address.
	AnonymousSender bool `yaml:"anonymous_sender" json:"anonymous_sender"`

	// Unsigned accepts letters without a signature.
	Unsigned bool `yaml:"unsigned" json:"unsigned"`

	// UnsignedAttachments accepts embedded or remote attachments without a signature.
	UnsignedAttachments bool `yaml:"unsigned_attachments" json:"unsigned_attachments"`
}

// Require holds mandatory toggles.
type Require struct {
	Subject bool `yaml:"subject" json:"subject"`
	Body    bool `yaml:"body" json:"body"`

	// Labels are label keys every letter must carry.
	Labels []string `yaml:"labels" json:"labels"`
}

// Limit holds numeric ceilings. A zero value disables that ceiling.
type Limit struct {
	Recipients             uint64 `yaml:"recipients" json:"recipients"`
	SubjectSize            uint64 `yaml:"subject_size" json:"subject_size"`
	BodySize               uint64 `yaml:"body_size" json:"body_size"`
	EmbeddedAttachments    uint64 `yaml:"embedded_attachments" json:"embedded_attachments"`
	EmbeddedAttachmentSize uint64 `yaml:"embedded_attachment_size" json:"embedded_attachment_size"`
	RemoteAttachments      uint64 `yaml:"remote_attachments" json:"remote_attachments"`
	RemoteAttachmentSize   uint64 `yaml:"remote_attachment_size" json:"remote_attachment_size"`
	Labels                 uint64 `yaml:"labels" json:"labels"`
}

// Default returns a permissive policy with no requirements and the default
// ceilings.
func Default() Policy {
	return Policy{
		Accept: Accept{
			AnonymousSender:     true,
			Unsigned:            true,
			UnsignedAttachments: true,
		},
		Limit: DefaultLimit(),
	}
}

// DefaultLimit returns the default ceilings.
func DefaultLimit() Limit {
	return Limit{
		Recipients:             DefaultRecipients,
		SubjectSize:            DefaultSubjectSize,
		BodySize:               DefaultBodySize,
		EmbeddedAttachments:    DefaultEmbeddedAttachments,
		EmbeddedAttachmentSize: DefaultEmbeddedAttachmentSize,
		RemoteAttachments:      DefaultRemoteAttachments,
		RemoteAttachmentSize:   DefaultRemoteAttachmentSize,
		Labels:                 DefaultLabels,
	}
}

// LabelSet returns the mandatory label keys, sorted and without duplicates.
func (r Require) LabelSet() []string {
	if len(r.Labels) == 0 {
		return nil
	}
	set := make([]string, 0, len(r.Labels))
	seen := make(map[string]struct{}, len(r.Labels))
	for _, key := range r.Labels {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, key)
	}
	sort.Strings(set)
	return set
}

// Exceeds reports whether n is over ceiling. A zero ceiling is never exceeded.
func Exceeds(n, ceiling uint64) bool {
	return ceiling != 0 && n > ceiling
}
