package serialization

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// StatusEvent is the published form of a quiet-period transition
type StatusEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Active    bool      `json:"active"`
	Interval  string    `json:"interval,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	Source    string    `json:"source,omitempty"`
}

// ToProto converts the event to a structpb.Struct. ChangedAt is carried
// as an RFC 3339 string produced by timestamppb so it survives either format.
func (e StatusEvent) ToProto() (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]interface{}{
		"id":         e.ID,
		"user_id":    e.UserID,
		"active":     e.Active,
		"interval":   e.Interval,
		"changed_at": timestamppb.New(e.ChangedAt).AsTime().Format(time.RFC3339Nano),
		"source":     e.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	return st, nil
}

// StatusEventFromProto is the inverse of ToProto
func StatusEventFromProto(st *structpb.Struct) (StatusEvent, error) {
	f := st.GetFields()
	e := StatusEvent{
		ID:       f["id"].GetStringValue(),
		UserID:   f["user_id"].GetStringValue(),
		Active:   f["active"].GetBoolValue(),
		Interval: f["interval"].GetStringValue(),
		Source:   f["source"].GetStringValue(),
	}
	if raw := f["changed_at"].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return StatusEvent{}, fmt.Errorf("%w: changed_at: %v", ErrUnmarshalFailed, err)
		}
		e.ChangedAt = ts
	}
	if e.UserID == "" {
		return StatusEvent{}, fmt.Errorf("%w: missing user_id", ErrUnmarshalFailed)
	}
	return e, nil
}

// EncodeStatusEvent serializes e with the serializer's default format
func (s *Serializer) EncodeStatusEvent(e StatusEvent) ([]byte, error) {
	if s.DefaultFormat != FormatProtobuf {
		return s.MarshalWithFormat(e, s.DefaultFormat)
	}
	st, err := e.ToProto()
	if err != nil {
		return nil, err
	}
	return s.MarshalWithFormat(st, FormatProtobuf)
}

// DecodeStatusEvent reads an event written in either format
func (s *Serializer) DecodeStatusEvent(data []byte) (StatusEvent, error) {
	format, payload, err := s.DetectFormat(data)
	if err != nil {
		return StatusEvent{}, err
	}

	if format == FormatProtobuf {
		st := &structpb.Struct{}
		if err := s.UnmarshalWithFormat(payload, st, FormatProtobuf); err != nil {
			return StatusEvent{}, err
		}
		return StatusEventFromProto(st)
	}

	var e StatusEvent
	if err := s.UnmarshalWithFormat(payload, &e, FormatJSON); err != nil {
		return StatusEvent{}, err
	}
	if e.UserID == "" {
		return StatusEvent{}, fmt.Errorf("%w: missing user_id", ErrUnmarshalFailed)
	}
	return e, nil
}
