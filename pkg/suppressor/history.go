package suppressor

// ring is a fixed-capacity circular store of the most recent far-end samples.
// pos marks the next write position; reads are taken relative to pos, with
// negative offsets wrapping to the end of the buffer. Offsets are kept in
// range by the caller, so reads never fail.
type ring struct {
	buf []float64
	pos int
}

func newRing(capacity int) ring {
	return ring{buf: make([]float64, capacity)}
}

// push appends block, overwriting the oldest samples.
func (r *ring) push(block []float64) {
	for _, v := range block {
		r.buf[r.pos] = v
		r.pos++
		if r.pos == len(r.buf) {
			r.pos = 0
		}
	}
}

// at returns the sample at the given signed offset from the write cursor.
func (r *ring) at(offset int) float64 {
	idx := (r.pos + offset) % len(r.buf)
	if idx < 0 {
		idx += len(r.buf)
	}
	return r.buf[idx]
}

// clear zero-fills the buffer and rewinds the cursor without reallocating.
func (r *ring) clear() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.pos = 0
}
