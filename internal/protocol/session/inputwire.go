package session

import (
	"fmt"
	"strings"

	"github.com/danmuck/overlayctl/internal/protocol/frame"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/tlv"
)

// Tool click actions.
const (
	ActionPrimary   uint8 = 1
	ActionSecondary uint8 = 2
)

// Interact reports that the client clicked a hit-test entity.
type Interact struct {
	EntityID uint32
}

// ToolClick reports a selection tool click on a cell face.
type ToolClick struct {
	World   string
	Cell    [3]int32
	Face    string
	Action  uint8
	Include bool
}

func (c ToolClick) Validate() error {
	if strings.TrimSpace(c.World) == "" {
		return fmt.Errorf("tool.click missing world")
	}
	if c.Action != ActionPrimary && c.Action != ActionSecondary {
		return fmt.Errorf("tool.click invalid action %d", c.Action)
	}
	return nil
}

// WorldChange reports the client moved to another world container.
type WorldChange struct {
	World string
}

// DebugMark asks for a debug marker at a precise position.
type DebugMark struct {
	World    string
	Position [3]float64
}

func EncodeInteractFrame(messageID uint64, m Interact) ([]byte, error) {
	return encode(messageID, schema.MsgDisplayInteract, []tlv.Field{tlv.U32(schema.FieldEntityID, m.EntityID)})
}

func DecodeInteractFrame(f frame.Frame) (Interact, error) {
	fields, err := decode(f, schema.MsgDisplayInteract)
	if err != nil {
		return Interact{}, err
	}
	id, err := u32Field(fields, schema.FieldEntityID)
	if err != nil {
		return Interact{}, err
	}
	return Interact{EntityID: id}, nil
}

func EncodeToolClickFrame(messageID uint64, m ToolClick) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	fields := []tlv.Field{
		tlv.String(schema.FieldWorld, m.World),
		tlv.Cell(schema.FieldCell, m.Cell[0], m.Cell[1], m.Cell[2]),
		tlv.String(schema.FieldFace, m.Face),
		tlv.U8(schema.FieldAction, m.Action),
	}
	if m.Include {
		fields = append(fields, tlv.Bool(schema.FieldInclude, true))
	}
	return encode(messageID, schema.MsgToolClick, fields)
}

func DecodeToolClickFrame(f frame.Frame) (ToolClick, error) {
	fields, err := decode(f, schema.MsgToolClick)
	if err != nil {
		return ToolClick{}, err
	}
	m := ToolClick{
		World: stringField(fields, schema.FieldWorld),
		Face:  stringField(fields, schema.FieldFace),
	}
	cf, _ := tlv.GetField(fields, schema.FieldCell)
	if m.Cell, err = tlv.CellFromBytes(cf.Value); err != nil {
		return ToolClick{}, err
	}
	if m.Action, err = u8Field(fields, schema.FieldAction); err != nil {
		return ToolClick{}, err
	}
	if inc, ok := tlv.GetField(fields, schema.FieldInclude); ok {
		if err := tlv.MustType(inc, tlv.TypeBool); err != nil {
			return ToolClick{}, err
		}
		if m.Include, err = tlv.BoolFromBytes(inc.Value); err != nil {
			return ToolClick{}, err
		}
	}
	if err := m.Validate(); err != nil {
		return ToolClick{}, err
	}
	return m, nil
}

func EncodeWorldChangeFrame(messageID uint64, m WorldChange) ([]byte, error) {
	return encode(messageID, schema.MsgWorldChange, []tlv.Field{tlv.String(schema.FieldWorld, m.World)})
}

func DecodeWorldChangeFrame(f frame.Frame) (WorldChange, error) {
	fields, err := decode(f, schema.MsgWorldChange)
	if err != nil {
		return WorldChange{}, err
	}
	return WorldChange{World: stringField(fields, schema.FieldWorld)}, nil
}

func EncodeDebugMarkFrame(messageID uint64, m DebugMark) ([]byte, error) {
	fields := []tlv.Field{
		tlv.String(schema.FieldWorld, m.World),
		tlv.Vec3(schema.FieldPosition, m.Position),
	}
	return encode(messageID, schema.MsgDebugMark, fields)
}

func DecodeDebugMarkFrame(f frame.Frame) (DebugMark, error) {
	fields, err := decode(f, schema.MsgDebugMark)
	if err != nil {
		return DebugMark{}, err
	}
	m := DebugMark{World: stringField(fields, schema.FieldWorld)}
	if m.Position, err = vec3Field(fields, schema.FieldPosition); err != nil {
		return DebugMark{}, err
	}
	return m, nil
}

func EncodeSelectionRefreshFrame(messageID uint64) ([]byte, error) {
	return encode(messageID, schema.MsgSelectionRefresh, nil)
}
