package mathx

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LerpDelta is a frame-rate independent lerp: the blend factor is speed per
// 60 Hz frame scaled by the elapsed dt.
func LerpDelta(from, to, speed, dt float64) float64 {
	return from + (to-from)*Clamp(speed*dt*60, 0, 1)
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 mixes a seed with two integers into a well-distributed 64-bit value.
func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
