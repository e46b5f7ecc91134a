package control

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdStop})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	if _, ok := raw["format"]; ok {
		t.Error("stop command should omit format")
	}
	if _, ok := raw["history"]; ok {
		t.Error("stop command should omit history")
	}
}

func TestCommandSaveHistory(t *testing.T) {
	j := `{"cmd":"save","format":"csv","history":2}`

	var cmd Command
	if err := json.Unmarshal([]byte(j), &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.Cmd != CmdSave || cmd.Format != "csv" {
		t.Errorf("cmd = %+v", cmd)
	}
	if cmd.History == nil || *cmd.History != 2 {
		t.Errorf("history = %v, want 2", cmd.History)
	}
}

func TestResponseStatus(t *testing.T) {
	j := `{"ok":true,"status":"paused","recording":true,"paused":true,"transcript":" hello","history":3}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !resp.OK || resp.Status != "paused" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Recording == nil || !*resp.Recording || resp.Paused == nil || !*resp.Paused {
		t.Errorf("recording = %v paused = %v", resp.Recording, resp.Paused)
	}
	if resp.History == nil || *resp.History != 3 {
		t.Errorf("history = %v, want 3", resp.History)
	}
}

func TestFail(t *testing.T) {
	resp := Fail(errors.New("nothing to save"))
	if resp.OK {
		t.Error("ok = true, want false")
	}
	if resp.Error != "nothing to save" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestEventError(t *testing.T) {
	j := `{"event":"error","message":"Speech recognition failed","transient":true}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Message != "Speech recognition failed" {
		t.Errorf("message = %q", ev.Message)
	}
	if ev.Transient == nil || !*ev.Transient {
		t.Errorf("transient = %v, want true", ev.Transient)
	}
}

func TestPtrHelpers(t *testing.T) {
	if p := BoolPtr(false); p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
	if p := IntPtr(4); p == nil || *p != 4 {
		t.Error("IntPtr(4) should return pointer to 4")
	}
}
