package httpapi

import (
	"errors"
	"io"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads.  A tap is a module id and a card UID, well under 200 bytes in
// either encoding.
const maxRequestBody = 4096

// Field numbers of the reader module messages:
//
//	message TapRequest  { string module_id = 1; string token = 2; }
//	message TapResponse { bool accepted = 1; string module_id = 2; string error = 3; }
const (
	tapReqModuleID  protowire.Number = 1
	tapReqToken     protowire.Number = 2
	tapRespAccepted protowire.Number = 1
	tapRespModuleID protowire.Number = 2
	tapRespError    protowire.Number = 3
)

var errBadProto = errors.New("malformed protobuf")

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.  Reader firmware sends "application/x-protobuf".
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "application/x-protobuf" ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

// readTapProto reads the request body and decodes it into req.
func readTapProto(r *http.Request, req *TapRequest) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return unmarshalTapRequest(body, req)
}

func unmarshalTapRequest(b []byte, req *TapRequest) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errBadProto
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == tapReqModuleID || num == tapReqToken) {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errBadProto
			}
			if num == tapReqModuleID {
				req.ModuleID = v
			} else {
				req.Token = v
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return errBadProto
		}
		b = b[n:]
	}
	return nil
}

func marshalTapResponse(resp TapResponse) []byte {
	var b []byte
	if resp.Accepted {
		b = protowire.AppendTag(b, tapRespAccepted, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	if resp.ModuleID != "" {
		b = protowire.AppendTag(b, tapRespModuleID, protowire.BytesType)
		b = protowire.AppendString(b, resp.ModuleID)
	}
	if resp.Error != "" {
		b = protowire.AppendTag(b, tapRespError, protowire.BytesType)
		b = protowire.AppendString(b, resp.Error)
	}
	return b
}

// writeTapProto encodes resp and writes it with the given HTTP status.
func writeTapProto(w http.ResponseWriter, status int, resp TapResponse) {
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(status)
	_, _ = w.Write(marshalTapResponse(resp))
}
