package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	actSchema := compile("act.schema.json")
	eventSchema := compile("event.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "painter_name":"bot1",
	  "capabilities":{"event_cursor":true,"max_queue":32},
	  "auth":{"token":"resume_grid_1_3"}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"f2f9c0f0-9a0f-4e54-9d8e-2a8f2e9b7c11",
	  "painter_id":"P3",
	  "resume_token":"resume_grid_1_3",
	  "grid_params":{
	    "width":16,
	    "height":16,
	    "cells":256,
	    "tick_rate_hz":20,
	    "fee_required":true,
	    "min_claim_fee":100,
	    "total_claimed":12
	  },
	  "event_cursor":42
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "painter_id":"P3",
	  "instants":[
	    {"id":"I1","type":"CLAIM","cell":42,"payment":100},
	    {"id":"I2","type":"SET_COLOR","cell":42,"r":255,"g":0,"b":17},
	    {"id":"I3","type":"SET_COLOR_STEPS","cell":42,"steps":[15,0,7]},
	    {"id":"I4","type":"WITHDRAW","dest":"vault"}
	  ]
	}`), &act)
	validate(actSchema, act)

	var event any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "cursor":7,
	  "event":{"t":120,"type":"CELL_CLAIMED","caller":"P3","cell":42,"x":9,"y":2}
	}`), &event)
	validate(eventSchema, event)
}

func TestSchemas_RejectBadAct(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "act.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bad := []string{
		`{"type":"ACT","protocol_version":"1.0","painter_id":"P1","instants":[{"id":"I1","type":"CLAIM","cell":0}]}`,
		`{"type":"ACT","protocol_version":"1.0","painter_id":"P1","instants":[{"id":"I1","type":"CLAIM","cell":257}]}`,
		`{"type":"ACT","protocol_version":"1.0","painter_id":"P1","instants":[{"id":"I1","type":"SET_COLOR_STEPS","cell":1,"steps":[16,0,0]}]}`,
		`{"type":"ACT","protocol_version":"1.0","painter_id":"P1","instants":[{"id":"I1","type":"PAINT_ALL"}]}`,
	}
	for _, raw := range bad {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := s.Validate(v); err == nil {
			t.Fatalf("schema accepted %s", raw)
		}
	}
}
