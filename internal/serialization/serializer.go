package serialization

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// PayloadFormat is the one-byte prefix written in front of every payload
type PayloadFormat byte

const (
	// FormatJSON marks a JSON body
	FormatJSON PayloadFormat = 0x00

	// FormatProtobuf marks a binary protobuf body
	FormatProtobuf PayloadFormat = 0x01
)

var (
	// ErrUnknownFormat is returned when the payload format cannot be determined
	ErrUnknownFormat = errors.New("unknown payload format")

	// ErrMarshalFailed is returned when marshaling fails
	ErrMarshalFailed = errors.New("failed to marshal payload")

	// ErrUnmarshalFailed is returned when unmarshaling fails
	ErrUnmarshalFailed = errors.New("failed to unmarshal payload")
)

// Serializer writes format-prefixed payloads and reads them back
type Serializer struct {
	// DefaultFormat is used by Marshal
	DefaultFormat PayloadFormat
}

// NewSerializer creates a serializer with the given default format
func NewSerializer(defaultFormat PayloadFormat) *Serializer {
	return &Serializer{DefaultFormat: defaultFormat}
}

// NewProtobufSerializer creates a serializer that defaults to protobuf
func NewProtobufSerializer() *Serializer {
	return NewSerializer(FormatProtobuf)
}

// NewJSONSerializer creates a serializer that defaults to JSON
func NewJSONSerializer() *Serializer {
	return NewSerializer(FormatJSON)
}

// ParseFormat maps "json" / "protobuf" to a PayloadFormat
func ParseFormat(name string) (PayloadFormat, error) {
	switch name {
	case "json", "":
		return FormatJSON, nil
	case "protobuf", "proto":
		return FormatProtobuf, nil
	default:
		return FormatJSON, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// String implements fmt.Stringer
func (f PayloadFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatProtobuf:
		return "protobuf"
	default:
		return fmt.Sprintf("format(0x%02X)", byte(f))
	}
}

// Marshal serializes v with the default format
func (s *Serializer) Marshal(v interface{}) ([]byte, error) {
	return s.MarshalWithFormat(v, s.DefaultFormat)
}

// MarshalWithFormat serializes v and prepends the format byte.
// FormatProtobuf requires v to be a proto.Message.
func (s *Serializer) MarshalWithFormat(v interface{}, format PayloadFormat) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w (JSON): %v", ErrMarshalFailed, err)
		}

	case FormatProtobuf:
		msg, ok := v.(proto.Message)
		if !ok {
			return nil, fmt.Errorf("%w: %T does not implement proto.Message", ErrMarshalFailed, v)
		}
		data, err = proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("%w (Protobuf): %v", ErrMarshalFailed, err)
		}

	default:
		return nil, fmt.Errorf("%w: format %d", ErrUnknownFormat, format)
	}

	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(format))
	return append(out, data...), nil
}

// Unmarshal detects the payload format and decodes into v
func (s *Serializer) Unmarshal(data []byte, v interface{}) error {
	format, payload, err := s.DetectFormat(data)
	if err != nil {
		return err
	}
	return s.UnmarshalWithFormat(payload, v, format)
}

// UnmarshalWithFormat decodes an unprefixed body
func (s *Serializer) UnmarshalWithFormat(data []byte, v interface{}, format PayloadFormat) error {
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w (JSON): %v", ErrUnmarshalFailed, err)
		}
		return nil

	case FormatProtobuf:
		msg, ok := v.(proto.Message)
		if !ok {
			return fmt.Errorf("%w: %T does not implement proto.Message", ErrUnmarshalFailed, v)
		}
		if err := proto.Unmarshal(data, msg); err != nil {
			return fmt.Errorf("%w (Protobuf): %v", ErrUnmarshalFailed, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: format %d", ErrUnknownFormat, format)
	}
}

// DetectFormat returns the format of data and the body without its prefix.
// Bare JSON objects and arrays are accepted without a prefix.
func (s *Serializer) DetectFormat(data []byte) (PayloadFormat, []byte, error) {
	if len(data) == 0 {
		return FormatJSON, nil, fmt.Errorf("%w: empty payload", ErrUnknownFormat)
	}

	switch format := PayloadFormat(data[0]); format {
	case FormatJSON, FormatProtobuf:
		if len(data) < 2 {
			return format, nil, fmt.Errorf("%w: payload too short", ErrUnmarshalFailed)
		}
		return format, data[1:], nil
	}

	if data[0] == '{' || data[0] == '[' {
		return FormatJSON, data, nil
	}
	return FormatJSON, data, fmt.Errorf("%w: unknown format byte 0x%02X", ErrUnknownFormat, data[0])
}
