package clipherd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Fingerprint
		want int
	}{
		{"identical", 0xdeadbeefdeadbeef, 0xdeadbeefdeadbeef, 0},
		{"one bit", 0x0, 0x1, 1},
		{"all bits", 0x0, 0xffffffffffffffff, 64},
		{"nibble", 0xf0, 0x0f, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Distance(tt.b))
			assert.Equal(t, tt.want, tt.b.Distance(tt.a))
		})
	}
}

func TestFingerprintRoundTrip(t *testing.T) {
	fp := Fingerprint(0x00a1b2c3d4e5f607)

	s := fp.String()
	assert.Len(t, s, 16)

	parsed, err := ParseFingerprint(s)
	require.NoError(t, err)
	assert.Equal(t, fp, parsed)

	_, err = ParseFingerprint("not-hex")
	assert.Error(t, err)
}

func TestFingerprintJSON(t *testing.T) {
	fp := Fingerprint(0xdeadbeef)

	data, err := json.Marshal(fp)
	require.NoError(t, err)
	assert.Equal(t, `"00000000deadbeef"`, string(data))

	var back Fingerprint
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fp, back)
}

func TestFingerprintSetMinDistance(t *testing.T) {
	a := FingerprintSet{0x00, 0xf0, 0xff00, 0xffff}
	b := FingerprintSet{0xffffffff, 0xf1, 0xffffffffffffffff, 0xcafe}

	// Closest pair is 0xf0 vs 0xf1, one bit apart.
	assert.Equal(t, 1, a.MinDistance(b))
	assert.Equal(t, 1, b.MinDistance(a))

	assert.Equal(t, 0, a.MinDistance(a))
}

func TestFingerprintSetIsZero(t *testing.T) {
	var zero FingerprintSet
	assert.True(t, zero.IsZero())
	assert.False(t, FingerprintSet{1}.IsZero())
}

func TestFingerprintSetStringsRoundTrip(t *testing.T) {
	set := FingerprintSet{0x1, 0x2, 0x3, 0xdeadbeef}

	parsed, err := ParseFingerprintSet(set.Strings())
	require.NoError(t, err)
	assert.Equal(t, set, parsed)
}
