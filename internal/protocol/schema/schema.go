package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/protocol/tlv"
)

// Message type IDs. Server->client display traffic sits below 10,
// client->server input at 10 and above.
const (
	MsgDisplaySpawn  uint32 = 1
	MsgDisplayState  uint32 = 2
	MsgDisplayRemove uint32 = 3

	MsgDisplayInteract  uint32 = 10
	MsgToolClick        uint32 = 11
	MsgWorldChange      uint32 = 12
	MsgDebugMark        uint32 = 13
	MsgSelectionRefresh uint32 = 14
)

// Field IDs.
const (
	FieldEntityID   uint16 = 1
	FieldEntityKind uint16 = 2
	FieldWorld      uint16 = 3
	FieldPosition   uint16 = 4

	FieldTranslation   uint16 = 100
	FieldLeftRotation  uint16 = 101
	FieldScale         uint16 = 102
	FieldRightRotation uint16 = 103
	FieldAppearance    uint16 = 104
	FieldGlow          uint16 = 105
	FieldGlowColor     uint16 = 106
	FieldInterpolation uint16 = 107

	FieldCell    uint16 = 200
	FieldFace    uint16 = 201
	FieldAction  uint16 = 202
	FieldInclude uint16 = 203
)

var names = map[uint32]string{
	MsgDisplaySpawn:     "display.spawn",
	MsgDisplayState:     "display.state",
	MsgDisplayRemove:    "display.remove",
	MsgDisplayInteract:  "display.interact",
	MsgToolClick:        "tool.click",
	MsgWorldChange:      "world.change",
	MsgDebugMark:        "debug.mark",
	MsgSelectionRefresh: "selection.refresh",
}

// Name returns the dotted name for a message type, or "unknown".
func Name(messageType uint32) string {
	if n, ok := names[messageType]; ok {
		return n
	}
	return "unknown"
}

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	MsgDisplaySpawn: {
		{FieldEntityID, tlv.TypeU32},
		{FieldEntityKind, tlv.TypeU8},
		{FieldWorld, tlv.TypeString},
		{FieldPosition, tlv.TypeVec3},
	},
	MsgDisplayState: {
		{FieldEntityID, tlv.TypeU32},
		{FieldPosition, tlv.TypeVec3},
		{FieldTranslation, tlv.TypeVec3},
		{FieldLeftRotation, tlv.TypeQuat},
		{FieldScale, tlv.TypeVec3},
		{FieldRightRotation, tlv.TypeQuat},
		{FieldAppearance, tlv.TypeString},
		{FieldGlow, tlv.TypeBool},
		{FieldInterpolation, tlv.TypeU32},
	},
	MsgDisplayRemove: {
		{FieldEntityID, tlv.TypeU32},
	},
	MsgDisplayInteract: {
		{FieldEntityID, tlv.TypeU32},
	},
	MsgToolClick: {
		{FieldWorld, tlv.TypeString},
		{FieldCell, tlv.TypeCell},
		{FieldFace, tlv.TypeString},
		{FieldAction, tlv.TypeU8},
	},
	MsgWorldChange: {
		{FieldWorld, tlv.TypeString},
	},
	MsgDebugMark: {
		{FieldWorld, tlv.TypeString},
		{FieldPosition, tlv.TypeVec3},
	},
	MsgSelectionRefresh: {},
}

// Validate enforces required fields and required field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint32, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		log.Debug().Uint32("message_type", messageType).Msg("schema.Validate unknown message_type")
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Debug().
				Str("message", Name(messageType)).
				Uint16("field_id", req.ID).
				Msg("schema.Validate missing field")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Str("message", Name(messageType)).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
