package utils

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SafeInv is 1/f with the zero guard the physics archetype needs:
// massless objects keep a zero inverse instead of going infinite.
func SafeInv(f float32) float32 {
	if f == 0 {
		return 0
	}
	return 1 / f
}

func SafeInvVec(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{SafeInv(v[0]), SafeInv(v[1]), SafeInv(v[2])}
}

func MaxComponent(v mgl32.Vec3) float32 {
	m := v[0]
	if v[1] > m {
		m = v[1]
	}
	if v[2] > m {
		m = v[2]
	}
	return m
}

// CompositeInertia combines per-child diagonal inertia tensors about a
// common center using the parallel axis theorem:
// I[axis] = sum(Ic[axis] + m*(|d|^2 - d[axis]^2)), d = cg - center.
func CompositeInertia(center mgl32.Vec3, cgs []mgl32.Vec3, inertias []mgl32.Vec3, masses []float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := range cgs {
		d := cgs[i].Sub(center)
		d2 := d.Dot(d)
		for axis := 0; axis < 3; axis++ {
			out[axis] += inertias[i][axis] + masses[i]*(d2-d[axis]*d[axis])
		}
	}
	return out
}

// WeightedMean is the mass-weighted mean of points; zero total mass
// yields the zero vector.
func WeightedMean(points []mgl32.Vec3, weights []float32) mgl32.Vec3 {
	var sum mgl32.Vec3
	var total float32
	for i := range points {
		sum = sum.Add(points[i].Mul(weights[i]))
		total += weights[i]
	}
	if total == 0 {
		return mgl32.Vec3{}
	}
	return sum.Mul(1 / total)
}

func FloatArray32to64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
