// Package rng constructs the explicitly owned random streams the simulator
// draws from. Every stream is a math/rand/v2 Source so it can be handed
// straight to gonum's distuv distributions.
package rng

import (
	"math/rand/v2"
	"time"
)

// Source is the random stream consumed by the simulator.
type Source = rand.Source

// New returns a PCG stream for seed. A zero seed draws one from the clock.
func New(seed uint64) *rand.PCG {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewPCG(seed, splitmix(seed))
}

// Streams derives n independent PCG streams from seed. Stream i is the
// same for a given (seed, i), regardless of n.
func Streams(seed uint64, n int) []*rand.PCG {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	out := make([]*rand.PCG, n)
	for i := range out {
		state := seed + 2*uint64(i)*golden
		out[i] = rand.NewPCG(splitmix(state), splitmix(state+golden))
	}
	return out
}

// Derive returns the seed of the index-th child stream family of seed.
func Derive(seed uint64, index int) uint64 {
	return splitmix(seed ^ splitmix(uint64(index)))
}

const golden = 0x9e3779b97f4a7c15

// splitmix is the SplitMix64 finalizer.
func splitmix(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Counting wraps a Source and records how many values were drawn from it.
type Counting struct {
	Src   Source
	Draws int
}

// Uint64 implements rand.Source.
func (c *Counting) Uint64() uint64 {
	c.Draws++
	return c.Src.Uint64()
}
