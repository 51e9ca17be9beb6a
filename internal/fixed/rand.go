package fixed

// Rand is a xorshift generator. Simulation randomness goes through one Rand per
// engine so replays with the same seed are bit-identical.
type Rand struct {
	state uint64
}

func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = 1
	}
	return &Rand{state: seed}
}

func (r *Rand) Next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint64(n))
}

// Chance reports true with probability num/den.
func (r *Rand) Chance(num, den int) bool {
	return r.Intn(den) < num
}

// State exposes the generator state for snapshots.
func (r *Rand) State() uint64 { return r.state }
