// Package address normalizes the address shapes a host may supply into the
// canonical list of email.Address records, validating raw strings against a
// practical email grammar.
package address

import (
	"regexp"

	"github.com/shineum/acs-mail-lite/internal/email"
)

// Plain email grammar, unanchored so it can be embedded in other patterns.
// The local part allows single internal dots only; the last domain label
// starts with a letter and has at least two characters.
const (
	localPart  = "[-!#$%&'*+/0-9=?A-Z^_a-z{|}~](\\.?[-!#$%&'*+/0-9=?A-Z^_a-z`{|}~])*"
	domainPart = `[a-zA-Z0-9](-*\.?[a-zA-Z0-9])*\.[a-zA-Z](-?[a-zA-Z0-9])+`
	emailBody  = localPart + "@" + domainPart
)

var (
	emailPattern = regexp.MustCompile("^" + emailBody + "$")

	// namedPattern matches "<display name> <<email>>". The display name is
	// everything before the final " <" and may be empty, but never spans a
	// line terminator.
	namedPattern = regexp.MustCompile(`^(?P<displayName>[^\n\r\x{2028}\x{2029}]*) <(?P<address>` + emailBody + `)>$`)

	displayNameGroup = namedPattern.SubexpIndex("displayName")
	addressGroup     = namedPattern.SubexpIndex("address")
)

// IsEmail reports whether s is a bare email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsAddressWithName reports whether s has the form "Name <email>".
func IsAddressWithName(s string) bool {
	return namedPattern.MatchString(s)
}

// Parse converts a raw string into an Address. Bare addresses yield a record
// without display name; "Name <email>" yields both parts. Anything else is a
// *ValidationError.
func Parse(s string) (email.Address, error) {
	if IsEmail(s) {
		return email.Address{Address: s}, nil
	}
	if m := namedPattern.FindStringSubmatch(s); m != nil {
		return email.Address{
			Address:     m[addressGroup],
			DisplayName: m[displayNameGroup],
		}, nil
	}
	return email.Address{}, &ValidationError{Input: s}
}

// Normalize converts an address input into canonical records.
//
// An empty input yields a single record for defaultAddress, or nil when
// defaultAddress is empty. Raw strings are validated with Parse. Structured
// addresses and lists are accepted without re-validation; list strings are
// used verbatim as the address.
func Normalize(in email.AddressInput, defaultAddress string) ([]email.Address, error) {
	if in.IsEmpty() {
		if defaultAddress == "" {
			return nil, nil
		}
		return []email.Address{{Address: defaultAddress}}, nil
	}

	switch in.Kind() {
	case email.KindText:
		a, err := Parse(in.Text())
		if err != nil {
			return nil, err
		}
		return []email.Address{a}, nil

	case email.KindAddress:
		return []email.Address{in.Address()}, nil

	default:
		entries := in.Entries()
		out := make([]email.Address, 0, len(entries))
		for _, e := range entries {
			if e.IsAddress() {
				out = append(out, e.Address())
				continue
			}
			out = append(out, email.Address{Address: e.Text()})
		}
		return out, nil
	}
}
