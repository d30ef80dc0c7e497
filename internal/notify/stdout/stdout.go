// Package stdout implements a Notifier that prints receipts to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shineum/sealed-relay/internal/mail"
)

// separator frames each printed receipt.
const separator = "========================================\n"

// Notifier prints receipts in a human-readable format.
type Notifier struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a Notifier that writes to os.Stdout.
func New() *Notifier {
	return &Notifier{writer: os.Stdout}
}

// NewWithWriter creates a Notifier that writes to w.
func NewWithWriter(w io.Writer) *Notifier {
	return &Notifier{writer: w}
}

// Notify prints the receipt. Subject, body and attachment data stay sealed;
// only addressing and sizes are shown.
func (n *Notifier) Notify(_ context.Context, r *mail.Receipt) error {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "Letter: %s\n", r.LetterID)
	fmt.Fprintf(&b, "Received: %s (#%d)\n", r.ReceivedAt.UTC().Format("2006-01-02 15:04:05"), r.Count)

	if r.Sender != nil {
		fmt.Fprintf(&b, "From: %s\n", r.Sender)
	} else {
		b.WriteString("From: (anonymous)\n")
	}

	to := make([]string, 0, len(r.Recipients))
	for _, rcpt := range r.Recipients {
		to = append(to, rcpt.String())
	}
	fmt.Fprintf(&b, "To: %s\n", strings.Join(to, ", "))

	if len(r.Labels) > 0 {
		keys := make([]string, 0, len(r.Labels))
		for k := range r.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(keys, ", "))
	}

	if len(r.Attachments) > 0 {
		attachments := make([]string, 0, len(r.Attachments))
		for _, att := range r.Attachments {
			meta := att.Metadata()
			attachments = append(attachments, fmt.Sprintf("%s %s (%s)", att.Kind(), meta.ID, formatSize(meta.Size)))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	if _, err := io.WriteString(n.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

// Name returns the notifier name.
func (n *Notifier) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes uint64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
