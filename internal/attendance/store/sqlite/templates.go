package sqlite

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// Templates are stored as a protobuf message without a generated type:
//
//	message Templates  { repeated Descriptor descriptors = 1; }
//	message Descriptor { repeated double values = 1 [packed = true]; }
const (
	fieldDescriptors = 1
	fieldValues      = 1
)

func encodeTemplates(ts []types.Descriptor) []byte {
	var out []byte
	for _, d := range ts {
		var msg []byte
		if len(d) > 0 {
			packed := make([]byte, 0, 8*len(d))
			for _, v := range d {
				packed = protowire.AppendFixed64(packed, math.Float64bits(v))
			}
			msg = protowire.AppendTag(msg, fieldValues, protowire.BytesType)
			msg = protowire.AppendBytes(msg, packed)
		}
		out = protowire.AppendTag(out, fieldDescriptors, protowire.BytesType)
		out = protowire.AppendBytes(out, msg)
	}
	return out
}

func decodeTemplates(b []byte) ([]types.Descriptor, error) {
	var out []types.Descriptor
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("templates tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == fieldDescriptors && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("templates descriptor: %w", protowire.ParseError(n))
			}
			b = b[n:]
			d, err := decodeDescriptor(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("templates field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return out, nil
}

// decodeDescriptor accepts both packed and unpacked encodings of values.
func decodeDescriptor(b []byte) (types.Descriptor, error) {
	d := types.Descriptor{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("descriptor tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldValues && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("descriptor values: %w", protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeFixed64(packed)
				if m < 0 {
					return nil, fmt.Errorf("descriptor value: %w", protowire.ParseError(m))
				}
				packed = packed[m:]
				d = append(d, math.Float64frombits(v))
			}
		case num == fieldValues && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("descriptor value: %w", protowire.ParseError(n))
			}
			b = b[n:]
			d = append(d, math.Float64frombits(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("descriptor field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return d, nil
}
