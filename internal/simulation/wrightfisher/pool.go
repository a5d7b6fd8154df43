package wrightfisher

import "github.com/copyleftdev/cnvsim/internal/simulation"

// TrajectoryPool provides a pool of reusable trajectory buffers to reduce
// allocations across trials. It is not safe for concurrent use; give each
// worker its own pool.
type TrajectoryPool struct {
	buffers []simulation.Trajectory
}

// NewTrajectoryPool creates a new TrajectoryPool
func NewTrajectoryPool() *TrajectoryPool {
	return &TrajectoryPool{
		buffers: make([]simulation.Trajectory, 0, 4),
	}
}

// Get returns an empty buffer from the pool or creates a new one
func (p *TrajectoryPool) Get(capacity int) simulation.Trajectory {
	if n := len(p.buffers); n > 0 {
		buf := p.buffers[n-1]
		p.buffers = p.buffers[:n-1]
		return buf[:0]
	}
	if capacity > initialCapacity || capacity < 1 {
		capacity = initialCapacity
	}
	return make(simulation.Trajectory, 0, capacity)
}

// Put returns a buffer to the pool. The caller must not use it afterwards.
func (p *TrajectoryPool) Put(buf simulation.Trajectory) {
	if buf == nil {
		return
	}
	p.buffers = append(p.buffers, buf)
}

// Len reports how many buffers are idle in the pool.
func (p *TrajectoryPool) Len() int {
	return len(p.buffers)
}
