// ABOUTME: Four character codes, component descriptions and platform status codes
// ABOUTME: Mirrors the identifiers used to locate and drive output units
package audio

import (
	"fmt"
	"strconv"
)

// FourCC packs four ASCII characters into a big-endian uint32
type FourCC uint32

// ParseFourCC converts a four character string into a FourCC.
// The empty string maps to zero, which acts as a wildcard in component lookups.
func ParseFourCC(s string) (FourCC, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("FOURCC string must be four characters long: %q", s)
	}
	return FourCC(s[0])<<24 | FourCC(s[1])<<16 | FourCC(s[2])<<8 | FourCC(s[3]), nil
}

// String returns the four characters, or the hex value when they are not printable
func (c FourCC) String() string {
	if b, ok := fourCCBytes(uint32(c)); ok {
		return string(b[:])
	}
	return fmt.Sprintf("0x%08x", uint32(c))
}

func fourCCBytes(v uint32) ([4]byte, bool) {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return b, false
		}
	}
	return b, true
}

// ComponentDescription selects an output unit by type, subtype and manufacturer
type ComponentDescription struct {
	Type         FourCC
	SubType      FourCC
	Manufacturer FourCC
}

// Component identifiers
const (
	TypeOutput FourCC = 'a'<<24 | 'u'<<16 | 'o'<<8 | 'u'

	SubTypeDefaultOutput FourCC = 'd'<<24 | 'e'<<16 | 'f'<<8 | ' '
	SubTypeSystemOutput  FourCC = 's'<<24 | 'y'<<16 | 's'<<8 | ' '
	SubTypeGenericOutput FourCC = 'g'<<24 | 'e'<<16 | 'n'<<8 | 'r'

	ManufacturerApple FourCC = 'a'<<24 | 'p'<<16 | 'p'<<8 | 'l'
)

// DefaultOutput describes the system default output unit
var DefaultOutput = ComponentDescription{
	Type:         TypeOutput,
	SubType:      SubTypeDefaultOutput,
	Manufacturer: ManufacturerApple,
}

// GenericOutput describes the offline output unit that never touches hardware
var GenericOutput = ComponentDescription{
	Type:         TypeOutput,
	SubType:      SubTypeGenericOutput,
	Manufacturer: ManufacturerApple,
}

// Matches reports whether c satisfies the query q; zero fields in q match anything
func (c ComponentDescription) Matches(q ComponentDescription) bool {
	return (q.Type == 0 || q.Type == c.Type) &&
		(q.SubType == 0 || q.SubType == c.SubType) &&
		(q.Manufacturer == 0 || q.Manufacturer == c.Manufacturer)
}

func (c ComponentDescription) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Type, c.SubType, c.Manufacturer)
}

// Status is a platform result code. Zero means success.
type Status int32

// Status codes returned by output devices
const (
	StatusOK                       Status = 0
	StatusInvalidProperty          Status = -10879
	StatusInvalidParameter         Status = -10878
	StatusInvalidElement           Status = -10877
	StatusNoConnection             Status = -10876
	StatusFailedInitialization     Status = -10875
	StatusTooManyFramesToProcess   Status = -10874
	StatusFormatNotSupported       Status = -10868
	StatusUninitialized            Status = -10867
	StatusInvalidScope             Status = -10866
	StatusPropertyNotWritable      Status = -10865
	StatusCannotDoInCurrentContext Status = -10863
	StatusInvalidPropertyValue     Status = -10851
	StatusInstanceInvalidated      Status = -66749
)

var statusNames = map[Status]string{
	StatusInvalidProperty:          "invalid property",
	StatusInvalidParameter:         "invalid parameter",
	StatusInvalidElement:           "invalid element",
	StatusNoConnection:             "no connection",
	StatusFailedInitialization:     "failed initialization",
	StatusTooManyFramesToProcess:   "too many frames to process",
	StatusFormatNotSupported:       "format not supported",
	StatusUninitialized:            "uninitialized",
	StatusInvalidScope:             "invalid scope",
	StatusPropertyNotWritable:      "property not writable",
	StatusCannotDoInCurrentContext: "cannot do in current context",
	StatusInvalidPropertyValue:     "invalid property value",
	StatusInstanceInvalidated:      "instance invalidated",
}

// Error implements the error interface so devices can return a Status directly
func (s Status) Error() string {
	return s.String()
}

// String prints four character statuses as 'abcd' and everything else as a number
func (s Status) String() string {
	if b, ok := fourCCBytes(uint32(s)); ok && s > 0 {
		return "'" + string(b[:]) + "'"
	}
	if name, ok := statusNames[s]; ok {
		return strconv.Itoa(int(s)) + " (" + name + ")"
	}
	return strconv.Itoa(int(s))
}
