package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/blob"
	"github.com/shineum/sealed-relay/internal/identifier"
	"github.com/shineum/sealed-relay/internal/mail"
)

func receipt() *mail.Receipt {
	sender := address.New(identifier.New(), "sender.example.com")
	letter := &mail.Letter{
		ID:         identifier.New(),
		Sender:     &sender,
		Recipients: []address.Address{address.New(identifier.New(), "a.example.com"), address.New(identifier.New(), "b.example.com")},
		Labels:     mail.Labels{"topic": "x", "lang": "en"},
		Attachments: &mail.Attachments{
			Embedded: []mail.Embedded{{Meta: mail.Meta{ID: identifier.New(), Size: 2048}, Data: blob.Blob("..")}},
		},
	}
	return mail.NewReceipt(letter, sender, 7, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
}

func TestNotify_Receipt(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewWithWriter(&buf)
	r := receipt()

	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	checks := []string{
		"Letter: " + r.LetterID.String(),
		"Received: 2026-03-04 05:06:07 (#7)",
		"From: " + r.Sender.String(),
		"To: " + r.Recipients[0].String() + ", " + r.Recipients[1].String(),
		"Labels: lang, topic",
		"Attachments: local ",
		"(2.0 KB)",
	}
	for _, want := range checks {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if !strings.HasPrefix(output, separator) || !strings.HasSuffix(output, separator) {
		t.Error("output should be framed by separator lines")
	}
}

func TestNotify_Anonymous(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewWithWriter(&buf)

	r := receipt()
	r.Sender = nil
	r.Attachments = nil
	r.Labels = nil

	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "From: (anonymous)") {
		t.Error("output missing anonymous sender")
	}
	if strings.Contains(output, "Attachments:") || strings.Contains(output, "Labels:") {
		t.Error("output should omit empty sections")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestNotify_WriteError(t *testing.T) {
	t.Parallel()

	if err := NewWithWriter(failingWriter{}).Notify(context.Background(), receipt()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5242880, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}
