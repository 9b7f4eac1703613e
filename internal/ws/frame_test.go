package ws

import (
	"encoding/json"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	data, err := EncodeFrame("diningTableStatus", 12, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(data) != `{"event":"diningTableStatus","args":[12,null]}` {
		t.Errorf("unexpected frame %s", data)
	}

	data, err = EncodeFrame("getDiningTables")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(data) != `{"event":"getDiningTables"}` {
		t.Errorf("unexpected frame %s", data)
	}

	if _, err := EncodeFrame("x", make(chan int)); err == nil {
		t.Error("expected error for unencodable argument")
	}
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"event":"getDiningTableStatus","args":[4]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Event != "getDiningTableStatus" || len(f.Args) != 1 {
		t.Fatalf("unexpected frame %+v", f)
	}
	var id int64
	if err := json.Unmarshal(f.Args[0], &id); err != nil || id != 4 {
		t.Errorf("arg = %d, %v", id, err)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	for _, payload := range []string{
		`{}`,
		`{"event":""}`,
		`{"event":123}`,
		`not json`,
		"\x00\x01\x02",
		`{"event":"x","args":{"a":1}}`,
	} {
		if _, err := DecodeFrame([]byte(payload)); err == nil {
			t.Errorf("expected error for %q", payload)
		}
	}
}
