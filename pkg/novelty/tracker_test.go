package novelty

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerIsEmpty(t *testing.T) {
	tr := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.False(t, tr.Contains(fmt.Sprintf("note-%d", i)))
	}
}

func TestNoFalseNegatives(t *testing.T) {
	tr := New(1000, 0.01)
	for i := 0; i < 500; i++ {
		tr.Insert(fmt.Sprintf("note-%d", i))
	}
	for i := 0; i < 500; i++ {
		assert.True(t, tr.Contains(fmt.Sprintf("note-%d", i)), "note-%d must be seen", i)
	}
}

func TestBoundedFalsePositives(t *testing.T) {
	tr := New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		tr.Insert(fmt.Sprintf("seen-%d", i))
	}

	falsePositives := 0
	const samples = 10000
	for i := 0; i < samples; i++ {
		if tr.Contains(fmt.Sprintf("never-%d", i)) {
			falsePositives++
		}
	}

	// Designed rate is 1%; allow generous slack for hash variance.
	rate := float64(falsePositives) / samples
	assert.Less(t, rate, 0.03, "false-positive rate %f too high", rate)
}

func TestInsertIdempotent(t *testing.T) {
	a := New(100, 0.01)
	b := New(100, 0.01)

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("note-%d", i)
		a.Insert(id)
		b.Insert(id)
		b.Insert(id)
		b.Insert(id)
	}

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("note-%d", i)
		assert.Equal(t, a.Contains(id), b.Contains(id), "answers diverge for %s", id)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tr := New(256, 0.01)
	for i := 0; i < 200; i++ {
		tr.Insert(fmt.Sprintf("note-%d", i))
	}

	blob, err := tr.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(blob, 256, 0.01)
	require.NoError(t, err)

	for i := 0; i < 400; i++ {
		id := fmt.Sprintf("note-%d", i)
		assert.Equal(t, tr.Contains(id), restored.Contains(id), "answers diverge for %s", id)
	}
}

func TestSerializeRoundTripWithRotation(t *testing.T) {
	tr := New(16, 0.01)
	for i := 0; i < 24; i++ {
		tr.Insert(fmt.Sprintf("note-%d", i))
	}

	blob, err := tr.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(blob, 16, 0.01)
	require.NoError(t, err)
	require.NotNil(t, restored.prev, "rotated tracker must restore both generations")

	for i := 0; i < 24; i++ {
		id := fmt.Sprintf("note-%d", i)
		assert.True(t, restored.Contains(id), "%s lost across round trip", id)
	}
}

func TestRotationKeepsRecentInsertions(t *testing.T) {
	tr := New(8, 0.01)

	// Fill two full generations plus one: ids 8..16 span the previous
	// and active filters and must all still test positive.
	for i := 0; i <= 16; i++ {
		tr.Insert(fmt.Sprintf("note-%d", i))
	}
	for i := 8; i <= 16; i++ {
		assert.True(t, tr.Contains(fmt.Sprintf("note-%d", i)), "recent note-%d aged out", i)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":       {},
		"short":       []byte("AT"),
		"wrong magic": []byte("XXXX\x01rest"),
		"bad version": []byte("ATNV\x09rest"),
		"truncated":   []byte("ATNV\x01\x00\x00\x00\x05\x01"),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize(blob, 0, 0)
			assert.Error(t, err)
		})
	}
}
