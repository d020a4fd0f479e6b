package schema

import (
	"testing"

	"github.com/danmuck/overlayctl/internal/protocol/tlv"
	"github.com/danmuck/overlayctl/internal/testutil/testlog"
)

func toolClickFields() []tlv.Field {
	return []tlv.Field{
		tlv.String(FieldWorld, "overworld"),
		tlv.Cell(FieldCell, 2, 3, 4),
		tlv.String(FieldFace, "up"),
		tlv.U8(FieldAction, 1),
	}
}

func TestValidateToolClickRequiredFields(t *testing.T) {
	testlog.Start(t)
	if err := Validate(MsgToolClick, toolClickFields()); err != nil {
		t.Fatalf("validate tool.click: %v", err)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	fields := append(toolClickFields(), tlv.Field{ID: 9999, Type: tlv.TypeBytes, Value: []byte{0x01}})
	if err := Validate(MsgToolClick, fields); err != nil {
		t.Fatalf("validate with unknown field: %v", err)
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{tlv.String(FieldWorld, "overworld")}
	err := Validate(MsgToolClick, fields)
	if err == nil {
		t.Fatalf("expected error")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.FieldID != FieldCell || ve.Reason != "missing required field" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateTypeMismatchDeterministic(t *testing.T) {
	testlog.Start(t)
	fields := toolClickFields()
	fields[3] = tlv.U32(FieldAction, 1)
	err := Validate(MsgToolClick, fields)
	if err == nil {
		t.Fatalf("expected error")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.FieldID != FieldAction || ve.Reason != "type mismatch" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateUnknownMessageType(t *testing.T) {
	testlog.Start(t)
	err := Validate(999, nil)
	ve, ok := err.(ValidationError)
	if !ok || ve.Reason != "unknown message_type" {
		t.Fatalf("expected unknown message_type, got %v", err)
	}
	if Name(999) != "unknown" || Name(MsgDisplayState) != "display.state" {
		t.Fatalf("unexpected names: %q %q", Name(999), Name(MsgDisplayState))
	}
}

func TestValidateSelectionRefreshHasNoRequirements(t *testing.T) {
	testlog.Start(t)
	if err := Validate(MsgSelectionRefresh, nil); err != nil {
		t.Fatalf("selection.refresh: %v", err)
	}
}
