package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// DecideRequest is the Decide payload. On the wire it is a
// google.protobuf.Struct with the same JSON field names.
type DecideRequest struct {
	Lanes             []arbiter.LaneState `json:"lanes"`
	EmergencyFlags    []bool              `json:"emergency_flags"`
	CurrentGreenIndex *int                `json:"current_green_index"`
	Beta              *float64            `json:"beta,omitempty"`
	Hysteresis        *float64            `json:"hysteresis,omitempty"`
}

// #endregion types

// #region convert
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	s := &structpb.Struct{}
	if err := s.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}

// #endregion convert
