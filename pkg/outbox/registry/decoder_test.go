package registry

import (
	"encoding/json"
	"testing"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventSettlementGenerated, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"status":"created"}`)
	output, err := reg.Decode(enums.EventSettlementGenerated, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["status"] != "created" {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestDecoderRegistryUnregistered(t *testing.T) {
	reg := NewDecoderRegistry()
	if _, err := reg.Decode(enums.EventSaleRecorded, 1, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected error for unregistered decoder")
	}
}
