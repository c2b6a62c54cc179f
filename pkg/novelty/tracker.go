// Package novelty implements the per-user probabilistic seen-set used to
// surface unseen content first. It is a thin envelope around a pair of
// Bloom filters: membership may report a false positive, but an inserted
// id is never reported unseen while its generation is alive.
package novelty

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bloom/v3"
)

// Defaults for a freshly created tracker.
const (
	DefaultCapacity = 4096
	DefaultFPRate   = 0.01
)

const (
	magic   = "ATNV"
	version = 1
)

// Tracker answers "has this content id likely been shown already?".
//
// Capacity policy: the active filter accepts up to capacity distinct
// insertions. When the budget is exhausted the active filter becomes the
// previous generation and a fresh one starts; membership consults both.
// Ids therefore age out only after a full generation has passed, keeping
// memory bounded at two filters while preserving no-false-negatives over
// at least the most recent capacity insertions.
type Tracker struct {
	capacity uint
	fpRate   float64
	count    uint32
	active   *bloom.BloomFilter
	prev     *bloom.BloomFilter
}

// New returns a tracker representing "nothing seen".
func New(capacity uint, fpRate float64) *Tracker {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultFPRate
	}
	return &Tracker{
		capacity: capacity,
		fpRate:   fpRate,
		active:   bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Contains reports whether id was likely seen. False means definitely not
// seen; true carries the filter's bounded false-positive probability.
func (t *Tracker) Contains(id string) bool {
	if t.active.TestString(id) {
		return true
	}
	return t.prev != nil && t.prev.TestString(id)
}

// Insert marks id as seen. Re-inserting an id already present in the
// active generation is a no-op and does not consume insertion budget.
func (t *Tracker) Insert(id string) {
	if t.active.TestString(id) {
		return
	}
	if uint(t.count) >= t.capacity {
		t.prev = t.active
		t.active = bloom.NewWithEstimates(t.capacity, t.fpRate)
		t.count = 0
	}
	t.active.AddString(id)
	t.count++
}

// Serialize encodes the tracker as an opaque blob suitable for the
// novelty_trackers filter column.
func (t *Tracker) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(version)

	if err := binary.Write(&buf, binary.BigEndian, t.count); err != nil {
		return nil, fmt.Errorf("encode count: %w", err)
	}

	generations := byte(1)
	if t.prev != nil {
		generations = 2
	}
	buf.WriteByte(generations)

	if _, err := t.active.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode active filter: %w", err)
	}
	if t.prev != nil {
		if _, err := t.prev.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("encode previous filter: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Deserialize restores a tracker from a Serialize blob. Capacity and
// fpRate govern future generation rotations; the decoded filters carry
// their own parameters. A malformed blob yields an error, and callers are
// expected to fall back to New rather than fail the request.
func Deserialize(data []byte, capacity uint, fpRate float64) (*Tracker, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultFPRate
	}

	buf := bytes.NewReader(data)

	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(buf, header); err != nil {
		return nil, fmt.Errorf("read tracker header: %w", err)
	}
	if string(header[:len(magic)]) != magic {
		return nil, fmt.Errorf("bad tracker header")
	}
	if header[len(magic)] != version {
		return nil, fmt.Errorf("unsupported tracker version %d", header[len(magic)])
	}

	var count uint32
	if err := binary.Read(buf, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("decode count: %w", err)
	}

	generations, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	if generations != 1 && generations != 2 {
		return nil, fmt.Errorf("bad generation count %d", generations)
	}

	t := &Tracker{capacity: capacity, fpRate: fpRate, count: count}

	t.active = &bloom.BloomFilter{}
	if _, err := t.active.ReadFrom(buf); err != nil {
		return nil, fmt.Errorf("decode active filter: %w", err)
	}
	if generations == 2 {
		t.prev = &bloom.BloomFilter{}
		if _, err := t.prev.ReadFrom(buf); err != nil {
			return nil, fmt.Errorf("decode previous filter: %w", err)
		}
	}
	return t, nil
}
