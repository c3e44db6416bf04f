package sqlite

import (
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

func TestDecodeDescriptor_AcceptsUnpackedValues(t *testing.T) {
	var msg []byte
	for _, v := range []float64{0.5, -1.25} {
		msg = protowire.AppendTag(msg, fieldValues, protowire.Fixed64Type)
		msg = protowire.AppendFixed64(msg, math.Float64bits(v))
	}
	var blob []byte
	blob = protowire.AppendTag(blob, fieldDescriptors, protowire.BytesType)
	blob = protowire.AppendBytes(blob, msg)

	got, err := decodeTemplates(blob)
	if err != nil {
		t.Fatalf("decodeTemplates: %v", err)
	}
	if len(got) != 1 || got[0].Distance(types.Descriptor{0.5, -1.25}) != 0 {
		t.Errorf("unexpected descriptors %v", got)
	}
}

func TestDecodeTemplates_SkipsUnknownFields(t *testing.T) {
	blob := encodeTemplates([]types.Descriptor{{1, 2}})
	blob = protowire.AppendTag(blob, 7, protowire.VarintType)
	blob = protowire.AppendVarint(blob, 42)

	got, err := decodeTemplates(blob)
	if err != nil {
		t.Fatalf("decodeTemplates: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("unexpected descriptors %v", got)
	}
}

func TestDecodeTemplates_Truncated(t *testing.T) {
	blob := encodeTemplates([]types.Descriptor{{1, 2, 3}})
	if _, err := decodeTemplates(blob[:len(blob)-3]); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
