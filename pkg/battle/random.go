package battle

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Rand is the source of confidence swings. Float64 returns values in [0,1).
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG-backed Rand. A zero seed draws one from crypto/rand,
// so production battles are not reproducible while tests can pin a seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var b [8]byte
		if _, err := crand.Read(b[:]); err == nil {
			seed = binary.LittleEndian.Uint64(b[:])
		} else {
			seed = rand.Uint64()
		}
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sequence is a Rand that replays fixed values, cycling when exhausted.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence returns a Sequence over values. With no values it always
// returns 0.5.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
