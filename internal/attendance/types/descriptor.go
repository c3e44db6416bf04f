package types

import "math"

// DescriptorLen is the dimension of a face descriptor produced by the
// recognizer.
const DescriptorLen = 128

// Descriptor is a face embedding.  Two descriptors of the same person sit
// close together in Euclidean distance.
type Descriptor []float64

// Distance returns the Euclidean distance between d and o.  Descriptors of
// different length never match, so the result is +Inf.
func (d Descriptor) Distance(o Descriptor) float64 {
	if len(d) != len(o) || len(d) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range d {
		diff := d[i] - o[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Clone returns a copy that does not share the backing array.
func (d Descriptor) Clone() Descriptor {
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Valid reports whether d has the recognizer's dimension.  Anything else can
// never come within the match threshold of a stored template.
func (d Descriptor) Valid() bool {
	return len(d) == DescriptorLen
}
