package escrowd

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/iov-one/escrowd/crypto/bech32"
	"github.com/iov-one/escrowd/errors"
)

const (
	// AddressLength is the size in bytes of every address.
	AddressLength = 20

	// AddressHRP is the human readable part of bech32 addresses.
	AddressHRP = "esc"
)

// The (?s) flag lets the data section contain any byte, newlines included.
var conditionFormat = regexp.MustCompile(`(?s)^([a-zA-Z0-9_\-]{3,8})/([a-zA-Z0-9_\-]{3,8})/(.+)$`)

// Condition names who may authorize an action, in the form
// "extension/type/data". A signature condition is owned by the sigs
// extension and carries the public key. An escrow custody condition is
// owned by the escrow extension and carries the escrow id.
type Condition []byte

// NewCondition builds the condition of given extension and type.
func NewCondition(ext, typ string, data []byte) Condition {
	c := make(Condition, 0, len(ext)+len(typ)+2+len(data))
	c = append(c, ext...)
	c = append(c, '/')
	c = append(c, typ...)
	c = append(c, '/')
	return append(c, data...)
}

// Parse splits the condition into its extension, type and data.
func (c Condition) Parse() (ext, typ string, data []byte, err error) {
	m := conditionFormat.FindSubmatch(c)
	if m == nil {
		return "", "", nil, errors.Wrapf(errors.ErrInvalidInput, "condition: %X", []byte(c))
	}
	return string(m[1]), string(m[2]), m[3], nil
}

// Address returns the address derived from the condition.
func (c Condition) Address() Address {
	return NewAddress(c)
}

func (c Condition) Equals(o Condition) bool {
	return bytes.Equal(c, o)
}

// String keeps the extension and type readable and hex encodes the data.
func (c Condition) String() string {
	ext, typ, data, err := c.Parse()
	if err != nil {
		return fmt.Sprintf("Invalid Condition: %X", []byte(c))
	}
	return fmt.Sprintf("%s/%s/%X", ext, typ, data)
}

func (c Condition) Validate() error {
	_, _, _, err := c.Parse()
	return err
}

// Address identifies an account: a signer, an escrow custody or any
// other condition. It is the truncated sha256 of the condition.
type Address []byte

// NewAddress derives the address of data. Nil data has no address.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	sum := sha256.Sum256(data)
	return Address(sum[:AddressLength])
}

func (a Address) Equals(o Address) bool {
	return bytes.Equal(a, o)
}

// Clone returns a copy that does not share memory with a.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	return append(Address(nil), a...)
}

// String returns upper case hex. Use Bech32 for a checksummed form.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return strings.ToUpper(hex.EncodeToString(a))
}

// Bech32 encodes the address with the AddressHRP prefix.
func (a Address) Bech32() (string, error) {
	raw, err := bech32.Encode(AddressHRP, a)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInvalidInput, "address of %d bytes", len(a))
	}
	return nil
}

// MarshalJSON writes the address as upper case hex instead of base64.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToUpper(hex.EncodeToString(a)))
}

// UnmarshalJSON accepts every format understood by ParseAddress.
func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(err, "address json")
	}
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress decodes an address. Without a prefix the value is hex.
// The "hex:", "bech32:" and "cond:" prefixes select the format
// explicitly, "cond:" taking a condition as printed by Condition.String.
// An empty value decodes to a nil address.
func ParseAddress(enc string) (Address, error) {
	format, value, found := strings.Cut(enc, ":")
	if !found {
		format, value = "hex", enc
	}
	if value == "" {
		return nil, nil
	}

	var addr Address
	switch format {
	case "hex":
		raw, err := hex.DecodeString(value)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, "address hex")
		}
		addr = raw
	case "bech32":
		hrp, raw, err := bech32.Decode(value)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "address bech32: %s", err)
		}
		if hrp != AddressHRP {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "address prefix %q", hrp)
		}
		addr = raw
	case "cond":
		c, err := parseCondition(value)
		if err != nil {
			return nil, err
		}
		return c.Address(), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidType, "address format %q", format)
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// parseCondition reverses Condition.String.
func parseCondition(s string) (Condition, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "condition format")
	}
	data, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "condition data: %s", err)
	}
	c := NewCondition(parts[0], parts[1], data)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
