package session

import (
	"bytes"
	"fmt"

	"github.com/danmuck/overlayctl/internal/protocol/frame"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/tlv"
)

// Entity kinds carried by display.spawn.
const (
	KindDisplay uint8 = 1
	KindHitbox  uint8 = 2
)

// DisplaySpawn creates a client-only entity at a position.
type DisplaySpawn struct {
	EntityID uint32
	Kind     uint8
	World    string
	Position [3]float64
}

// DisplayState carries the full visible state of a live entity.
// Rotations are w, x, y, z.
type DisplayState struct {
	EntityID      uint32
	Position      [3]float64
	Translation   [3]float64
	LeftRotation  [4]float64
	Scale         [3]float64
	RightRotation [4]float64
	Appearance    string
	Glow          bool
	GlowColor     uint32
	Interpolation uint32
}

// DisplayRemove destroys a client-only entity.
type DisplayRemove struct {
	EntityID uint32
}

func EncodeSpawnFrame(messageID uint64, m DisplaySpawn) ([]byte, error) {
	if m.EntityID == 0 {
		return nil, fmt.Errorf("display.spawn missing entity_id")
	}
	if m.Kind != KindDisplay && m.Kind != KindHitbox {
		return nil, fmt.Errorf("display.spawn invalid kind %d", m.Kind)
	}
	fields := []tlv.Field{
		tlv.U32(schema.FieldEntityID, m.EntityID),
		tlv.U8(schema.FieldEntityKind, m.Kind),
		tlv.String(schema.FieldWorld, m.World),
		tlv.Vec3(schema.FieldPosition, m.Position),
	}
	return encode(messageID, schema.MsgDisplaySpawn, fields)
}

func DecodeSpawnFrame(f frame.Frame) (DisplaySpawn, error) {
	fields, err := decode(f, schema.MsgDisplaySpawn)
	if err != nil {
		return DisplaySpawn{}, err
	}
	var m DisplaySpawn
	if m.EntityID, err = u32Field(fields, schema.FieldEntityID); err != nil {
		return DisplaySpawn{}, err
	}
	if m.Kind, err = u8Field(fields, schema.FieldEntityKind); err != nil {
		return DisplaySpawn{}, err
	}
	m.World = stringField(fields, schema.FieldWorld)
	if m.Position, err = vec3Field(fields, schema.FieldPosition); err != nil {
		return DisplaySpawn{}, err
	}
	return m, nil
}

func EncodeStateFrame(messageID uint64, m DisplayState) ([]byte, error) {
	if m.EntityID == 0 {
		return nil, fmt.Errorf("display.state missing entity_id")
	}
	l, r := m.LeftRotation, m.RightRotation
	fields := []tlv.Field{
		tlv.U32(schema.FieldEntityID, m.EntityID),
		tlv.Vec3(schema.FieldPosition, m.Position),
		tlv.Vec3(schema.FieldTranslation, m.Translation),
		tlv.Quat(schema.FieldLeftRotation, l[0], l[1], l[2], l[3]),
		tlv.Vec3(schema.FieldScale, m.Scale),
		tlv.Quat(schema.FieldRightRotation, r[0], r[1], r[2], r[3]),
		tlv.String(schema.FieldAppearance, m.Appearance),
		tlv.Bool(schema.FieldGlow, m.Glow),
		tlv.U32(schema.FieldInterpolation, m.Interpolation),
	}
	if m.Glow {
		fields = append(fields, tlv.U32(schema.FieldGlowColor, m.GlowColor))
	}
	return encode(messageID, schema.MsgDisplayState, fields)
}

func DecodeStateFrame(f frame.Frame) (DisplayState, error) {
	fields, err := decode(f, schema.MsgDisplayState)
	if err != nil {
		return DisplayState{}, err
	}
	var m DisplayState
	if m.EntityID, err = u32Field(fields, schema.FieldEntityID); err != nil {
		return DisplayState{}, err
	}
	if m.Position, err = vec3Field(fields, schema.FieldPosition); err != nil {
		return DisplayState{}, err
	}
	if m.Translation, err = vec3Field(fields, schema.FieldTranslation); err != nil {
		return DisplayState{}, err
	}
	if m.LeftRotation, err = quatField(fields, schema.FieldLeftRotation); err != nil {
		return DisplayState{}, err
	}
	if m.Scale, err = vec3Field(fields, schema.FieldScale); err != nil {
		return DisplayState{}, err
	}
	if m.RightRotation, err = quatField(fields, schema.FieldRightRotation); err != nil {
		return DisplayState{}, err
	}
	m.Appearance = stringField(fields, schema.FieldAppearance)
	if m.Glow, err = boolField(fields, schema.FieldGlow); err != nil {
		return DisplayState{}, err
	}
	if m.Interpolation, err = u32Field(fields, schema.FieldInterpolation); err != nil {
		return DisplayState{}, err
	}
	if _, ok := tlv.GetField(fields, schema.FieldGlowColor); ok {
		if m.GlowColor, err = u32Field(fields, schema.FieldGlowColor); err != nil {
			return DisplayState{}, err
		}
	}
	return m, nil
}

func EncodeRemoveFrame(messageID uint64, m DisplayRemove) ([]byte, error) {
	if m.EntityID == 0 {
		return nil, fmt.Errorf("display.remove missing entity_id")
	}
	return encode(messageID, schema.MsgDisplayRemove, []tlv.Field{tlv.U32(schema.FieldEntityID, m.EntityID)})
}

func DecodeRemoveFrame(f frame.Frame) (DisplayRemove, error) {
	fields, err := decode(f, schema.MsgDisplayRemove)
	if err != nil {
		return DisplayRemove{}, err
	}
	id, err := u32Field(fields, schema.FieldEntityID)
	if err != nil {
		return DisplayRemove{}, err
	}
	return DisplayRemove{EntityID: id}, nil
}

// ParseFrame decodes exactly one frame from a websocket binary message.
func ParseFrame(b []byte) (frame.Frame, error) {
	r := bytes.NewReader(b)
	f, err := frame.ReadFrame(r, frame.DefaultLimits())
	if err != nil {
		return frame.Frame{}, err
	}
	if r.Len() != 0 {
		return frame.Frame{}, fmt.Errorf("%w: %d", frame.ErrTrailingBytes, r.Len())
	}
	return f, nil
}

func encode(messageID uint64, messageType uint32, fields []tlv.Field) ([]byte, error) {
	if err := schema.Validate(messageType, fields); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err := frame.WriteFrame(&buf, frame.Frame{
		Header: frame.Header{
			MessageID:   messageID,
			MessageType: messageType,
		},
		Payload: tlv.EncodeFields(fields),
	}, frame.DefaultLimits())
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(f frame.Frame, want uint32) ([]tlv.Field, error) {
	if f.Header.MessageType != want {
		return nil, fmt.Errorf("session: message_type=%d want %s", f.Header.MessageType, schema.Name(want))
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(want, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Field getters assume schema.Validate already ran, so presence and type hold.

func stringField(fields []tlv.Field, id uint16) string {
	f, _ := tlv.GetField(fields, id)
	return string(f.Value)
}

func u8Field(fields []tlv.Field, id uint16) (uint8, error) {
	f, _ := tlv.GetField(fields, id)
	return tlv.U8FromBytes(f.Value)
}

func u32Field(fields []tlv.Field, id uint16) (uint32, error) {
	f, _ := tlv.GetField(fields, id)
	return tlv.U32FromBytes(f.Value)
}

func boolField(fields []tlv.Field, id uint16) (bool, error) {
	f, _ := tlv.GetField(fields, id)
	return tlv.BoolFromBytes(f.Value)
}

func vec3Field(fields []tlv.Field, id uint16) ([3]float64, error) {
	f, _ := tlv.GetField(fields, id)
	return tlv.Vec3FromBytes(f.Value)
}

func quatField(fields []tlv.Field, id uint16) ([4]float64, error) {
	f, _ := tlv.GetField(fields, id)
	return tlv.QuatFromBytes(f.Value)
}
