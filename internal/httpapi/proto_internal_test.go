package httpapi

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestUnmarshalTapRequest_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)
	b = protowire.AppendTag(b, tapReqToken, protowire.BytesType)
	b = protowire.AppendString(b, "04A1")
	b = protowire.AppendTag(b, tapReqModuleID, protowire.BytesType)
	b = protowire.AppendString(b, "room-101")

	var req TapRequest
	if err := unmarshalTapRequest(b, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Token != "04A1" || req.ModuleID != "room-101" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestUnmarshalTapRequest_Truncated(t *testing.T) {
	b := protowire.AppendTag(nil, tapReqToken, protowire.BytesType)
	b = protowire.AppendVarint(b, 10)

	var req TapRequest
	if err := unmarshalTapRequest(append(b, 'x'), &req); err == nil {
		t.Fatal("expected error for truncated field")
	}
}

func TestTapResponseEncoding(t *testing.T) {
	want := TapResponse{Accepted: true, ModuleID: "room-101", Error: ""}
	got, err := unmarshalTapResponse(marshalTapResponse(want))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	rejected := TapResponse{ModuleID: "hallway", Error: "unknown_module"}
	got, err = unmarshalTapResponse(marshalTapResponse(rejected))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != rejected {
		t.Errorf("got %+v, want %+v", got, rejected)
	}
}

func unmarshalTapResponse(b []byte) (TapResponse, error) {
	var resp TapResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return resp, errBadProto
		}
		b = b[n:]

		switch {
		case num == tapRespAccepted && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return resp, errBadProto
			}
			resp.Accepted = protowire.DecodeBool(v)
			b = b[n:]
		case (num == tapRespModuleID || num == tapRespError) && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return resp, errBadProto
			}
			if num == tapRespModuleID {
				resp.ModuleID = v
			} else {
				resp.Error = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return resp, errBadProto
			}
			b = b[n:]
		}
	}
	return resp, nil
}
