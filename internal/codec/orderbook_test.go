package codec

import (
	"encoding/json"
	"testing"
)

func TestDecodeBookFrameSnapshot(t *testing.T) {
	raw := `{
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"action": "snapshot",
		"data": [{
			"asks": [["3366.8", "9", "0", "1"], ["3368", "8", "0", "1"]],
			"bids": [["3366.1", "7", "0", "1"], ["3366", "6", "0", "1"]],
			"ts": "1597026383085",
			"checksum": -855196043,
			"seqId": 123
		}]
	}`

	var f PushFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal push frame: %v", err)
	}

	frame, err := DecodeBookFrame(f)
	if err != nil {
		t.Fatalf("DecodeBookFrame: %v", err)
	}

	if !frame.IsSnapshot {
		t.Error("expected IsSnapshot=true")
	}
	if frame.InstID != "BTC-USDT" {
		t.Errorf("InstID = %q, want BTC-USDT", frame.InstID)
	}
	if len(frame.Bids) != 2 || len(frame.Asks) != 2 {
		t.Fatalf("got %d bids, %d asks, want 2 and 2", len(frame.Bids), len(frame.Asks))
	}
	if frame.Bids[0].PriceStr != "3366.1" || frame.Bids[0].SizeStr != "7" {
		t.Errorf("bid[0] = %+v, lexical form not preserved", frame.Bids[0])
	}
	if frame.Checksum == nil || *frame.Checksum != -855196043 {
		t.Errorf("checksum = %v, want -855196043", frame.Checksum)
	}
	if frame.SeqID != 123 {
		t.Errorf("seqID = %d, want 123", frame.SeqID)
	}
	if frame.Timestamp != 1597026383085 {
		t.Errorf("timestamp = %d, want 1597026383085", frame.Timestamp)
	}
}

func TestDecodeBookFrameDropsMalformedRows(t *testing.T) {
	raw := `{
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"data": [{
			"asks": [["bad", "9", "0", "1"]],
			"bids": [["3366.1", "7", "0", "1"]],
			"ts": "1597026383085",
			"seqId": 124
		}]
	}`
	var f PushFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal push frame: %v", err)
	}
	frame, err := DecodeBookFrame(f)
	if err != nil {
		t.Fatalf("DecodeBookFrame: %v", err)
	}
	if len(frame.Asks) != 0 {
		t.Errorf("expected malformed ask row dropped, got %d asks", len(frame.Asks))
	}
	if len(frame.Bids) != 1 {
		t.Errorf("expected 1 valid bid, got %d", len(frame.Bids))
	}
}
