// Package validate evaluates a sealed letter against an acceptance policy.
//
// Rules run in a fixed order and evaluation stops at the first violation, so
// a letter breaking several rules always reports the same single reason.
// Each ceiling is checked right after the presence rule it belongs to.
package validate

import (
	"github.com/shineum/sealed-relay/internal/mail"
	"github.com/shineum/sealed-relay/internal/policy"
)

// Validate returns nil if p accepts letter, or a *Rejection naming the first
// violated rule. It has no side effects and is safe for concurrent use.
func Validate(letter *mail.Letter, p policy.Policy) error {
	if r := check(letter, p); r != nil {
		return r
	}
	return nil
}

func check(letter *mail.Letter, p policy.Policy) *Rejection {
	if len(letter.Recipients) == 0 {
		return reject(NoRecipients)
	}
	if n := uint64(len(letter.Recipients)); policy.Exceeds(n, p.Limit.Recipients) {
		return exceeded(TooManyRecipients, n, p.Limit.Recipients)
	}

	if !p.Accept.AnonymousSender && letter.Anonymous() {
		return reject(AnonymousSender)
	}

	if !p.Accept.Unsigned && !letter.Signed() {
		return reject(Unsigned)
	}

	if !p.Accept.UnsignedAttachments && !letter.Attachments.AllSigned() {
		return reject(UnsignedAttachments)
	}
	if r := checkAttachments(letter.Attachments, p.Limit); r != nil {
		return r
	}

	if p.Require.Subject && letter.Subject == nil {
		return reject(NoSubject)
	}
	if letter.Subject != nil {
		if n := uint64(letter.Subject.Len()); policy.Exceeds(n, p.Limit.SubjectSize) {
			return exceeded(SubjectTooLarge, n, p.Limit.SubjectSize)
		}
	}

	if p.Require.Body && letter.Body == nil {
		return reject(NoBody)
	}
	if letter.Body != nil {
		if n := uint64(letter.Body.Len()); policy.Exceeds(n, p.Limit.BodySize) {
			return exceeded(BodyTooLarge, n, p.Limit.BodySize)
		}
	}

	if missing := missingLabels(p.Require.LabelSet(), letter.Labels); len(missing) > 0 {
		return &Rejection{Reason: MissingLabels, Missing: missing}
	}
	if n := uint64(len(letter.Labels)); policy.Exceeds(n, p.Limit.Labels) {
		return exceeded(TooManyLabels, n, p.Limit.Labels)
	}

	return nil
}

// checkAttachments enforces the attachment count and size ceilings. Embedded
// attachments are measured by the larger of their declared size and their
// inline data.
func checkAttachments(a *mail.Attachments, limit policy.Limit) *Rejection {
	if a == nil {
		return nil
	}

	if n := uint64(len(a.Embedded)); policy.Exceeds(n, limit.EmbeddedAttachments) {
		return exceeded(TooManyEmbeddedAttachments, n, limit.EmbeddedAttachments)
	}
	for _, e := range a.Embedded {
		size := e.Size
		if n := uint64(e.Data.Len()); n > size {
			size = n
		}
		if policy.Exceeds(size, limit.EmbeddedAttachmentSize) {
			return exceeded(EmbeddedAttachmentTooLarge, size, limit.EmbeddedAttachmentSize)
		}
	}

	if n := uint64(len(a.Remote)); policy.Exceeds(n, limit.RemoteAttachments) {
		return exceeded(TooManyRemoteAttachments, n, limit.RemoteAttachments)
	}
	for _, r := range a.Remote {
		if policy.Exceeds(r.Size, limit.RemoteAttachmentSize) {
			return exceeded(RemoteAttachmentTooLarge, r.Size, limit.RemoteAttachmentSize)
		}
	}

	return nil
}

// missingLabels returns the keys of required that labels lacks, preserving
// the sorted order of required.
func missingLabels(required []string, labels mail.Labels) []string {
	var missing []string
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
