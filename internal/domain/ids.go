package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// IDSource issues order and trade identifiers. IDs are name-based UUIDs
// derived from a per-session namespace and a monotonic sequence, so two
// sessions constructed with the same seed issue the same ID stream. Not
// safe for concurrent use; the simulation core is single-threaded.
type IDSource struct {
	ns  uuid.UUID
	seq uint64
}

// NewIDSource creates an IDSource whose stream is a pure function of seed.
func NewIDSource(seed int64) *IDSource {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	return &IDSource{ns: uuid.NewSHA1(uuid.NameSpaceOID, buf[:])}
}

// Next returns the next identifier in the stream.
func (s *IDSource) Next() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.seq)
	s.seq++
	return uuid.NewSHA1(s.ns, buf[:]).String()
}
