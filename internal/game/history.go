package game

import "time"

// HistorySize is the number of recent paddle samples kept per player.
const HistorySize = 3

// PoseSample is a reported paddle pose with the time it was taken.
type PoseSample struct {
	Pose
	At time.Time
}

// PoseHistory is a fixed-capacity ring of the most recent samples.
// Pushing into a full ring overwrites the oldest sample.
type PoseHistory struct {
	samples [HistorySize]PoseSample
	next    int // slot the next sample goes into
	count   int
}

// Push appends a sample, dropping the oldest one when full.
func (h *PoseHistory) Push(s PoseSample) {
	h.samples[h.next] = s
	h.next = (h.next + 1) % HistorySize
	if h.count < HistorySize {
		h.count++
	}
}

// Len returns the number of buffered samples.
func (h *PoseHistory) Len() int {
	return h.count
}

// Reset discards every sample.
func (h *PoseHistory) Reset() {
	*h = PoseHistory{}
}

// back returns the i-th most recent sample, 0 being the newest.
func (h *PoseHistory) back(i int) PoseSample {
	idx := (h.next - 1 - i + 2*HistorySize) % HistorySize
	return h.samples[idx]
}

// Newest returns the latest sample, if any.
func (h *PoseHistory) Newest() (PoseSample, bool) {
	if h.count == 0 {
		return PoseSample{}, false
	}
	return h.back(0), true
}

// Interpolated returns the paddle pose to collide against at time at.
//
// Without history the fallback (latest known pose) is returned. A query at
// or before the newest sample returns that sample unmodified. A later query
// blends the two newest samples by the elapsed fraction clamped to [0,1];
// that fraction is already past 1 there, so the result is still the newest
// pose. A zero or negative span between samples yields the newest sample.
func (h *PoseHistory) Interpolated(fallback Pose, at time.Time) Pose {
	if h.count == 0 {
		return fallback
	}

	newest := h.back(0)
	if h.count == 1 || !at.After(newest.At) {
		return newest.Pose
	}

	older := h.back(1)
	span := newest.At.Sub(older.At)
	if span <= 0 {
		return newest.Pose
	}

	f := float64(at.Sub(older.At)) / float64(span)
	f = clamp01(f)

	return Pose{
		X:        lerp(older.X, newest.X, f),
		Y:        lerp(older.Y, newest.Y, f),
		Rotation: lerp(older.Rotation, newest.Rotation, f),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
