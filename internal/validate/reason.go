package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRejected matches every *Rejection.
var ErrRejected = errors.New("letter rejected")

// Reason identifies the single rule a rejected letter violated.
type Reason int

const (
	NoRecipients Reason = iota + 1
	TooManyRecipients
	AnonymousSender
	Unsigned
	UnsignedAttachments
	TooManyEmbeddedAttachments
	EmbeddedAttachmentTooLarge
	TooManyRemoteAttachments
	RemoteAttachmentTooLarge
	NoSubject
	SubjectTooLarge
	NoBody
	BodyTooLarge
	MissingLabels
	TooManyLabels
)

var reasonCodes = map[Reason]string{
	NoRecipients:               "no_recipients",
	TooManyRecipients:          "too_many_recipients",
	AnonymousSender:            "anonymous_sender",
	Unsigned:                   "unsigned",
	UnsignedAttachments:        "unsigned_attachments",
	TooManyEmbeddedAttachments: "too_many_embedded_attachments",
	EmbeddedAttachmentTooLarge: "embedded_attachment_too_large",
	TooManyRemoteAttachments:   "too_many_remote_attachments",
	RemoteAttachmentTooLarge:   "remote_attachment_too_large",
	NoSubject:                  "no_subject",
	SubjectTooLarge:            "subject_too_large",
	NoBody:                     "no_body",
	BodyTooLarge:               "body_too_large",
	MissingLabels:              "missing_labels",
	TooManyLabels:              "too_many_labels",
}

// String returns the stable machine-readable code for r.
func (r Reason) String() string {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Rejection is the outcome of a failed validation.
type Rejection struct {
	Reason Reason

	// Missing lists the absent mandatory label keys, sorted. Only set for
	// MissingLabels.
	Missing []string

	// Limit and Actual are set for ceiling violations.
	Limit  uint64
	Actual uint64
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case NoRecipients:
		return "at least one recipient must be provided"
	case TooManyRecipients:
		return fmt.Sprintf("too many recipients: %d exceeds the limit of %d", r.Actual, r.Limit)
	case AnonymousSender:
		return "anonymous senders are forbidden"
	case Unsigned:
		return "unsigned letters are forbidden"
	case UnsignedAttachments:
		return "unsigned attachments are forbidden"
	case TooManyEmbeddedAttachments:
		return fmt.Sprintf("too many embedded attachments: %d exceeds the limit of %d", r.Actual, r.Limit)
	case EmbeddedAttachmentTooLarge:
		return fmt.Sprintf("embedded attachment too large: %d bytes exceeds the limit of %d", r.Actual, r.Limit)
	case TooManyRemoteAttachments:
		return fmt.Sprintf("too many remote attachments: %d exceeds the limit of %d", r.Actual, r.Limit)
	case RemoteAttachmentTooLarge:
		return fmt.Sprintf("remote attachment too large: %d bytes exceeds the limit of %d", r.Actual, r.Limit)
	case NoSubject:
		return "a letter subject is required"
	case SubjectTooLarge:
		return fmt.Sprintf("subject too large: %d bytes exceeds the limit of %d", r.Actual, r.Limit)
	case NoBody:
		return "a letter body is required"
	case BodyTooLarge:
		return fmt.Sprintf("body too large: %d bytes exceeds the limit of %d", r.Actual, r.Limit)
	case MissingLabels:
		return "the following labels are required: " + strings.Join(r.Missing, ", ")
	case TooManyLabels:
		return fmt.Sprintf("too many labels: %d exceeds the limit of %d", r.Actual, r.Limit)
	default:
		return fmt.Sprintf("letter rejected: %s", r.Reason)
	}
}

// Is reports whether target is ErrRejected.
func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason Reason) *Rejection {
	return &Rejection{Reason: reason}
}

func exceeded(reason Reason, actual, limit uint64) *Rejection {
	return &Rejection{Reason: reason, Actual: actual, Limit: limit}
}
