package clipherd

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strconv"
)

// FrameSamples is the number of frames sampled per video: the first frame,
// the last frame, and two interior frames at evenly spaced offsets.
const FrameSamples = 4

// Fingerprint is a 64-bit perceptual hash of one sampled video frame,
// tolerant of minor re-encoding differences.
type Fingerprint uint64

// Distance returns the Hamming distance to another fingerprint.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f ^ other))
}

// String renders the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// ParseFingerprint parses the hex form produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", s, err)
	}
	return Fingerprint(v), nil
}

// MarshalJSON encodes the fingerprint as a hex string.
func (f Fingerprint) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes the hex string form.
func (f *Fingerprint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseFingerprint(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// FingerprintSet holds one fingerprint per sampled frame, in sampling order.
type FingerprintSet [FrameSamples]Fingerprint

// IsZero reports whether no fingerprints have been computed.
func (s FingerprintSet) IsZero() bool {
	return s == FingerprintSet{}
}

// MinDistance returns the minimum Hamming distance between any fingerprint
// in this set and any fingerprint in the other set.
func (s FingerprintSet) MinDistance(other FingerprintSet) int {
	min := 64
	for _, a := range s {
		for _, b := range other {
			if d := a.Distance(b); d < min {
				min = d
			}
		}
	}
	return min
}

// Strings returns the hex form of every fingerprint, in sampling order.
func (s FingerprintSet) Strings() [FrameSamples]string {
	var out [FrameSamples]string
	for i, f := range s {
		out[i] = f.String()
	}
	return out
}

// ParseFingerprintSet parses the hex forms produced by Strings.
func ParseFingerprintSet(parts [FrameSamples]string) (FingerprintSet, error) {
	var set FingerprintSet
	for i, p := range parts {
		f, err := ParseFingerprint(p)
		if err != nil {
			return FingerprintSet{}, err
		}
		set[i] = f
	}
	return set, nil
}
