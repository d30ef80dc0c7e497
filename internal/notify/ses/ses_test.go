package ses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/identifier"
	"github.com/shineum/sealed-relay/internal/mail"
	"github.com/shineum/sealed-relay/internal/notify"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

// newFast returns a Notifier whose retries do not sleep for seconds.
func newFast(client SendEmailAPI) *Notifier {
	n := NewWithClient("relay@example.com", "ops@example.com", client)
	n.retryDelay = time.Millisecond
	return n
}

func receipt() *mail.Receipt {
	sender := address.New(identifier.New(), "sender.example.com")
	return &mail.Receipt{
		LetterID:   identifier.New(),
		Sender:     &sender,
		Recipients: []address.Address{address.New(identifier.New(), "example.com")},
		Count:      42,
		ReceivedAt: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := newFast(&mockSESClient{}).Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestNotify_Summary(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	r := receipt()

	if err := newFast(mock).Notify(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if got := *input.FromEmailAddress; got != "relay@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "relay@example.com")
	}
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "ops@example.com" {
		t.Errorf("ToAddresses: got %v, want [ops@example.com]", got)
	}
	if got := *input.Content.Simple.Subject.Data; !strings.Contains(got, r.LetterID.String()) {
		t.Errorf("Subject %q should name the letter", got)
	}

	body := *input.Content.Simple.Body.Text.Data
	for _, want := range []string{
		"Total received: 42",
		"Sender: " + r.Sender.String(),
		"Recipients: 1",
		"Received at: 2026-05-06T07:08:09Z",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestNotify_RetryOnError(t *testing.T) {
	t.Parallel()

	callCount := 0
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			callCount++
			if callCount <= 2 {
				return nil, errors.New("transient error")
			}
			return &sesv2.SendEmailOutput{MessageId: aws.String("ok")}, nil
		},
	}

	if err := newFast(mock).Notify(context.Background(), receipt()); err != nil {
		t.Fatalf("expected success after retry, got: %v", err)
	}
	if callCount != 3 {
		t.Errorf("call count: got %d, want 3", callCount)
	}
}

func TestNotify_AllRetriesExhausted(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("persistent error")
		},
	}

	err := newFast(mock).Notify(context.Background(), receipt())
	if err == nil {
		t.Fatal("expected error after all retries exhausted")
	}
	if !strings.Contains(err.Error(), "after 3 retries") {
		t.Errorf("error message: got %q, want to contain 'after 3 retries'", err.Error())
	}
	// 1 initial + 3 retries = 4 total
	if mock.callCount != 4 {
		t.Errorf("call count: got %d, want 4", mock.callCount)
	}
}

func TestNotify_ContextCancelled(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("error")
		},
	}
	n := NewWithClient("relay@example.com", "ops@example.com", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, receipt())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestSummary_Anonymous(t *testing.T) {
	t.Parallel()

	r := receipt()
	r.Sender = nil
	if got := summary(r); !strings.Contains(got, "Sender: anonymous") {
		t.Errorf("summary missing anonymous sender:\n%s", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	n := NewWithClient("a", "b", &mockSESClient{})
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := n.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d): got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNotifierInterface(t *testing.T) {
	t.Parallel()

	var _ notify.Notifier = (*Notifier)(nil)
}
