package address

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/sealed-relay/internal/identifier"
)

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	hosts := []string{
		"example.com",
		"localhost",
		"mail.relay-01.example.org",
		"127.0.0.1",
		"A.B.C",
		strings.Repeat("a", 63) + ".com",
	}

	for _, host := range hosts {
		for i := 0; i < 10; i++ {
			want := New(identifier.New(), host)
			got, err := Parse(want.String())
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", want.String(), err)
			}
			if got != want {
				t.Errorf("round trip: got %v, want %v", got, want)
			}
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	id := identifier.New().String()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no at sign", input: id + "example.com"},
		{name: "no host", input: id + "@"},
		{name: "no identifier", input: "@example.com"},
		{name: "short identifier", input: id[:31] + "@example.com"},
		{name: "long identifier", input: id + "A@example.com"},
		{name: "identifier with plus", input: "+" + id[1:] + "@example.com"},
		{name: "two at signs", input: id + "@foo@example.com"},
		{name: "leading whitespace", input: " " + id + "@example.com"},
		{name: "trailing whitespace", input: id + "@example.com "},
		{name: "leading hyphen label", input: id + "@-example.com"},
		{name: "trailing hyphen label", input: id + "@example-.com"},
		{name: "empty label", input: id + "@example..com"},
		{name: "trailing dot", input: id + "@example.com."},
		{name: "label too long", input: id + "@" + strings.Repeat("a", 64) + ".com"},
		{name: "underscore in host", input: id + "@ex_ample.com"},
		{name: "host too long", input: id + "@" + strings.Repeat(strings.Repeat("a", 50)+".", 6) + "com"},
		{name: "ipv6 literal", input: id + "@[::1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(tt.input)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q): got %v, want ErrMalformed", tt.input, err)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("got %T, want *ParseError", err)
			}
			if parseErr.Value != tt.input {
				t.Errorf("Value: got %q, want %q", parseErr.Value, tt.input)
			}
		})
	}
}

func TestParseError_IdentifierFailure(t *testing.T) {
	t.Parallel()

	_, idErr := identifier.Parse("short")
	err := error(&ParseError{Value: "short@example.com", Err: idErr})

	if errors.Is(err, ErrMalformed) {
		t.Error("identifier failure should not match ErrMalformed")
	}
	if !errors.Is(err, identifier.ErrInvalid) {
		t.Errorf("got %v, want identifier.ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "invalid identifier") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestParseError_Message(t *testing.T) {
	t.Parallel()

	_, err := Parse("nope")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), `"nope" is not a valid address`) {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	addr := New(identifier.New(), "example.com")
	data, err := json.Marshal([]Address{addr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []Address
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != addr {
		t.Errorf("decoded: got %v, want [%v]", decoded, addr)
	}

	if err := json.Unmarshal([]byte(`["bogus"]`), &decoded); !errors.Is(err, ErrMalformed) {
		t.Errorf("bogus address: got %v, want ErrMalformed", err)
	}
}

func TestValidHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{host: "example.com", want: true},
		{host: "a", want: true},
		{host: "a-b.c", want: true},
		{host: "", want: false},
		{host: ".", want: false},
		{host: "a..b", want: false},
		{host: "-a", want: false},
		{host: "a-", want: false},
		{host: "a b", want: false},
	}

	for _, tt := range tests {
		if got := ValidHost(tt.host); got != tt.want {
			t.Errorf("ValidHost(%q): got %v, want %v", tt.host, got, tt.want)
		}
	}
}
