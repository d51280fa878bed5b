package gcode

import "math"

// Tolerance is the per-axis distance below which two coordinates are
// considered the same position. Comparisons are per axis, independently,
// never a combined Euclidean distance.
const Tolerance = 0.0001

// point is an absolute machine position.
type point struct {
	X, Y, Z float64
}

func coordEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}

func (p point) almostEqual(q point) bool {
	return coordEqual(p.X, q.X) && coordEqual(p.Y, q.Y) && coordEqual(p.Z, q.Z)
}

// segment is a traversed toolpath segment. Equality and hashing are
// direction-agnostic: A->B and B->A are the same segment.
type segment struct {
	a, b point
}

func (s segment) equal(o segment) bool {
	if s.a.almostEqual(o.a) && s.b.almostEqual(o.b) {
		return true
	}
	return s.a.almostEqual(o.b) && s.b.almostEqual(o.a)
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// pointHash hashes coordinates rounded to the tolerance granularity.
func pointHash(p point) uint64 {
	h := uint64(fnvOffset)
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		h ^= uint64(int64(math.Round(v / Tolerance)))
		h *= fnvPrime
	}
	return h
}

// hash combines the per-endpoint hashes with XOR so that swapping start and
// end yields an identical value, matching the symmetric equality above. An
// asymmetric hash here would break bucket lookup for reversed traversals.
func (s segment) hash() uint64 {
	return pointHash(s.a) ^ pointHash(s.b)
}

type segmentEntry struct {
	seg  segment
	line int
}

// segmentSet maps every segment traversed so far to the line that first
// traversed it. Buckets keyed by the symmetric hash hold the entries whose
// equality is then checked with the per-axis tolerance in both orderings.
// Entries are kept for the whole file; duplicates may be arbitrarily far
// apart, so nothing expires.
type segmentSet struct {
	buckets map[uint64][]segmentEntry
}

func newSegmentSet() *segmentSet {
	return &segmentSet{buckets: make(map[uint64][]segmentEntry)}
}

// firstSeen returns the line that first traversed seg, if any.
func (s *segmentSet) firstSeen(seg segment) (int, bool) {
	for _, e := range s.buckets[seg.hash()] {
		if e.seg.equal(seg) {
			return e.line, true
		}
	}
	return 0, false
}

// insert records seg as first traversed at line. Existing entries are never
// overwritten.
func (s *segmentSet) insert(seg segment, line int) {
	h := seg.hash()
	s.buckets[h] = append(s.buckets[h], segmentEntry{seg: seg, line: line})
}
