package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/testutil/testlog"
)

func TestBuildCommandClick(t *testing.T) {
	testlog.Start(t)
	msg, world, err := buildCommand(1, "overworld", strings.Fields("click 2 -3 4 up secondary include"))
	if err != nil || world != "overworld" {
		t.Fatalf("build click: %v %q", err, world)
	}
	f, err := session.ParseFrame(msg)
	if err != nil || f.Header.MessageType != schema.MsgToolClick {
		t.Fatalf("unexpected frame: %v", err)
	}
	click, err := session.DecodeToolClickFrame(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if click.Cell != [3]int32{2, -3, 4} || click.Action != session.ActionSecondary || !click.Include || click.Face != "up" {
		t.Fatalf("unexpected click: %+v", click)
	}
}

func TestBuildCommandWorldMarkAndErrors(t *testing.T) {
	testlog.Start(t)
	_, world, err := buildCommand(1, "overworld", []string{"world", "nether"})
	if err != nil || world != "nether" {
		t.Fatalf("world: %v %q", err, world)
	}
	msg, _, err := buildCommand(2, "nether", strings.Fields("mark 1.5 2 -3.25"))
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	f, _ := session.ParseFrame(msg)
	mark, err := session.DecodeDebugMarkFrame(f)
	if err != nil || mark.World != "nether" || mark.Position != [3]float64{1.5, 2, -3.25} {
		t.Fatalf("unexpected mark: %+v %v", mark, err)
	}

	bad := []string{"click 1 2", "click a 2 3 up", "click 1 2 3 up sideways", "hit", "hit x", "mark 1 2", "dance"}
	for _, line := range bad {
		if _, _, err := buildCommand(3, "nether", strings.Fields(line)); !errors.Is(err, ErrUsage) {
			t.Fatalf("%q: expected ErrUsage, got %v", line, err)
		}
	}
}

func TestApplyTracksLiveEntities(t *testing.T) {
	testlog.Start(t)
	a := &App{live: map[uint32]session.DisplayState{}, kinds: map[uint32]uint8{}}
	spawn, _ := session.EncodeSpawnFrame(1, session.DisplaySpawn{EntityID: 4, Kind: session.KindDisplay, World: "overworld"})
	state, _ := session.EncodeStateFrame(2, session.DisplayState{EntityID: 4, Appearance: "white_concrete", LeftRotation: [4]float64{1, 0, 0, 0}, RightRotation: [4]float64{1, 0, 0, 0}})
	remove, _ := session.EncodeRemoveFrame(3, session.DisplayRemove{EntityID: 4})

	for _, b := range [][]byte{spawn, state} {
		if err := a.apply(b); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if a.live[4].Appearance != "white_concrete" {
		t.Fatalf("expected tracked state, got %+v", a.live[4])
	}
	if err := a.apply(remove); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	if len(a.live) != 0 || len(a.kinds) != 0 {
		t.Fatalf("expected empty table")
	}
	click, _ := session.EncodeSelectionRefreshFrame(4)
	if err := a.apply(click); err == nil {
		t.Fatalf("client-bound input must be rejected")
	}
}

func TestLoadClientConfig(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadClientConfig("client.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tgt, err := pickTarget(cfg, "local")
	if err != nil || tgt.World != "overworld" || !strings.HasSuffix(tgt.URL, "/ws") {
		t.Fatalf("unexpected target: %+v %v", tgt, err)
	}
	if _, err := pickTarget(cfg, "remote"); err == nil {
		t.Fatalf("expected unknown target error")
	}
}
