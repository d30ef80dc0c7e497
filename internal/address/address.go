// Package address implements globally unique addresses of the form
// <identifier>@<host>.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shineum/sealed-relay/internal/identifier"
)

const (
	// maxLabelLength is the DNS limit for a single host label.
	maxLabelLength = 63

	// maxHostLength is the DNS limit for a full host name.
	maxHostLength = 253
)

// ErrMalformed is returned when text does not match the address grammar.
var ErrMalformed = errors.New("malformed address")

// Address is a globally unique locator: a locally unique identifier on a host.
type Address struct {
	// ID is the locally unique identifier for a piece of data on Host.
	ID identifier.Identifier

	// Host is a domain name or a literal IPv4 address.
	Host string
}

// ParseError describes why an address could not be parsed. Err is either
// ErrMalformed or the identifier codec error for the local segment.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrMalformed) {
		return fmt.Sprintf("%q is not a valid address", e.Value)
	}
	return fmt.Sprintf("invalid identifier in address %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// New returns an address for id on host.
func New(id identifier.Identifier, host string) Address {
	return Address{ID: id, Host: host}
}

// Parse parses the canonical text form of an address. The whole input must
// match; surrounding whitespace is not tolerated.
func Parse(s string) (Address, error) {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return Address{}, &ParseError{Value: s, Err: ErrMalformed}
	}

	local, host := s[:at], s[at+1:]
	if !validLocal(local) || !ValidHost(host) {
		return Address{}, &ParseError{Value: s, Err: ErrMalformed}
	}

	id, err := identifier.Parse(local)
	if err != nil {
		return Address{}, &ParseError{Value: s, Err: err}
	}

	return Address{ID: id, Host: host}, nil
}

// String returns the canonical text form of the address.
func (a Address) String() string {
	return a.ID.String() + "@" + a.Host
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// validLocal reports whether s is exactly one identifier's worth of
// URL-safe base64 characters.
func validLocal(s string) bool {
	if len(s) != identifier.TextLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isAlnum(c) && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

// ValidHost reports whether s is one or more dot-separated DNS labels. Each
// label is 1-63 alphanumeric characters with hyphens allowed only inside.
func ValidHost(s string) bool {
	if s == "" || len(s) > maxHostLength {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !validLabel(label) {
			return false
		}
	}
	return true
}

func validLabel(s string) bool {
	if len(s) == 0 || len(s) > maxLabelLength {
		return false
	}
	if !isAlnum(s[0]) || !isAlnum(s[len(s)-1]) {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		if !isAlnum(s[i]) && s[i] != '-' {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
