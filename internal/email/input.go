package email

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// InputKind tells which shape an AddressInput holds.
type InputKind int

const (
	// KindNone means no value was supplied.
	KindNone InputKind = iota
	// KindText is a raw string such as "a@x.com" or "Name <a@x.com>".
	KindText
	// KindAddress is a single structured Address.
	KindAddress
	// KindList is an ordered list of strings and Addresses.
	KindList
)

// AddressInput is any of the shapes a caller may supply for an
// address-bearing field. The zero value holds nothing.
type AddressInput struct {
	kind    InputKind
	text    string
	address Address
	entries []AddressEntry
}

// AddressEntry is one element of a list input: either a raw string or a
// structured Address.
type AddressEntry struct {
	text    string
	address *Address
}

// NoAddress returns an input holding nothing.
func NoAddress() AddressInput {
	return AddressInput{}
}

// AddressText returns an input holding a raw string.
func AddressText(s string) AddressInput {
	return AddressInput{kind: KindText, text: s}
}

// SingleAddress returns an input holding one structured Address.
func SingleAddress(a Address) AddressInput {
	return AddressInput{kind: KindAddress, address: a}
}

// AddressList returns an input holding an ordered list. A call with no
// entries yields an empty list, which is distinct from NoAddress.
func AddressList(entries ...AddressEntry) AddressInput {
	list := make([]AddressEntry, len(entries))
	copy(list, entries)
	return AddressInput{kind: KindList, entries: list}
}

// TextEntry returns a list entry holding a raw string.
func TextEntry(s string) AddressEntry {
	return AddressEntry{text: s}
}

// AddressEntryOf returns a list entry holding a structured Address.
func AddressEntryOf(a Address) AddressEntry {
	return AddressEntry{address: &a}
}

// Kind reports which shape the input holds.
func (in AddressInput) Kind() InputKind { return in.kind }

// Text returns the raw string of a KindText input.
func (in AddressInput) Text() string { return in.text }

// Address returns the Address of a KindAddress input.
func (in AddressInput) Address() Address { return in.address }

// Entries returns the entries of a KindList input.
func (in AddressInput) Entries() []AddressEntry { return in.entries }

// IsEmpty reports whether the input carries no usable value. An empty raw
// string counts as empty; an empty list does not.
func (in AddressInput) IsEmpty() bool {
	switch in.kind {
	case KindNone:
		return true
	case KindText:
		return in.text == ""
	default:
		return false
	}
}

// IsAddress reports whether the entry holds a structured Address.
func (e AddressEntry) IsAddress() bool { return e.address != nil }

// Text returns the raw string of a text entry.
func (e AddressEntry) Text() string { return e.text }

// Address returns the structured Address of an address entry, or the zero
// Address for a text entry.
func (e AddressEntry) Address() Address {
	if e.address == nil {
		return Address{}
	}
	return *e.address
}

// UnmarshalJSON decodes null, a string, an object with an "address" key, or
// an array of strings and such objects.
func (in *AddressInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = NoAddress()
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = AddressText(s)
		return nil
	case '{':
		a, err := decodeJSONAddress(data)
		if err != nil {
			return err
		}
		*in = SingleAddress(a)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		entries := make([]AddressEntry, 0, len(raw))
		for i, item := range raw {
			entry, err := decodeJSONEntry(item)
			if err != nil {
				return fmt.Errorf("address list element %d: %w", i, err)
			}
			entries = append(entries, entry)
		}
		*in = AddressInput{kind: KindList, entries: entries}
		return nil
	default:
		return fmt.Errorf("unsupported address value: %s", data)
	}
}

func decodeJSONEntry(data []byte) (AddressEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return AddressEntry{}, err
		}
		return TextEntry(s), nil
	}
	if len(data) > 0 && data[0] == '{' {
		a, err := decodeJSONAddress(data)
		if err != nil {
			return AddressEntry{}, err
		}
		return AddressEntryOf(a), nil
	}
	return AddressEntry{}, fmt.Errorf("unsupported address value: %s", data)
}

func decodeJSONAddress(data []byte) (Address, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Address{}, err
	}
	if _, ok := fields["address"]; !ok {
		return Address{}, fmt.Errorf("address object missing \"address\" key")
	}
	var a Address
	if err := json.Unmarshal(data, &a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (in *AddressInput) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*in = NoAddress()
			return nil
		}
		*in = AddressText(node.Value)
		return nil
	case yaml.MappingNode:
		a, err := decodeYAMLAddress(node)
		if err != nil {
			return err
		}
		*in = SingleAddress(a)
		return nil
	case yaml.SequenceNode:
		entries := make([]AddressEntry, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind == yaml.AliasNode && item.Alias != nil {
				item = item.Alias
			}
			switch item.Kind {
			case yaml.ScalarNode:
				entries = append(entries, TextEntry(item.Value))
			case yaml.MappingNode:
				a, err := decodeYAMLAddress(item)
				if err != nil {
					return fmt.Errorf("address list element %d: %w", i, err)
				}
				entries = append(entries, AddressEntryOf(a))
			default:
				return fmt.Errorf("address list element %d: unsupported value at line %d", i, item.Line)
			}
		}
		*in = AddressInput{kind: KindList, entries: entries}
		return nil
	default:
		return fmt.Errorf("unsupported address value at line %d", node.Line)
	}
}

func decodeYAMLAddress(node *yaml.Node) (Address, error) {
	found := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "address" {
			found = true
			break
		}
	}
	if !found {
		return Address{}, fmt.Errorf("address mapping at line %d missing \"address\" key", node.Line)
	}
	var a Address
	if err := node.Decode(&a); err != nil {
		return Address{}, err
	}
	return a, nil
}
