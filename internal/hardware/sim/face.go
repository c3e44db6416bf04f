package sim

import (
	"hash/fnv"
	"math/rand"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// Face returns the descriptor the sim recognizer reports for label.  The
// same label always yields the same descriptor; different labels land far
// enough apart that they never match at the default threshold.
func Face(label string) types.Descriptor {
	return FaceVariant(label, 0)
}

// FaceVariant is Face with a small deterministic offset, standing in for a
// second pose of the same person.  Variant 0 is the canonical face.
func FaceVariant(label string, variant int) types.Descriptor {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	d := make(types.Descriptor, types.DescriptorLen)
	for i := range d {
		d[i] = r.Float64()*0.2 - 0.1
	}
	if variant != 0 {
		jr := rand.New(rand.NewSource(int64(h.Sum64()) + int64(variant)))
		for i := range d {
			d[i] += (jr.Float64()*2 - 1) * 0.005
		}
	}
	return d
}
