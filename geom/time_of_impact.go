package geom

import "math"

// TOIState classifies the outcome of a TimeOfImpact query.
type TOIState uint8

const (
	TOIUnknown TOIState = iota
	TOIFailed
	TOIOverlapped
	TOITouching
	TOISeparated
)

// TOIInput bundles the two proxies and their motion sweeps over the
// interval [0, TMax] that TimeOfImpact searches.
type TOIInput struct {
	ProxyA, ProxyB DistanceProxy
	SweepA, SweepB Sweep
	TMax           float64
}

// TOIOutput reports the state TimeOfImpact settled on and the fraction T
// (within [0, TMax]) at which it occurred.
type TOIOutput struct {
	State TOIState
	T     float64
}

type sepFuncType uint8

const (
	sepPoints sepFuncType = iota
	sepFaceA
	sepFaceB
)

// separationFunction evaluates the separation between the two proxies
// along a fixed axis derived from the GJK simplex, as a function of
// sweep fraction t. TimeOfImpact root-finds on this function rather than
// repeating full GJK at every candidate t.
type separationFunction struct {
	proxyA, proxyB *DistanceProxy
	sweepA, sweepB Sweep
	kind           sepFuncType
	localPoint     Vec2
	axis           Vec2
}

func (f *separationFunction) initialize(cache *SimplexCache, proxyA *DistanceProxy, sweepA Sweep, proxyB *DistanceProxy, sweepB Sweep, t1 float64) float64 {
	f.proxyA = proxyA
	f.proxyB = proxyB
	count := cache.Count

	f.sweepA = sweepA
	f.sweepB = sweepB

	xfA := sweepA.GetTransform(t1)
	xfB := sweepB.GetTransform(t1)

	switch {
	case count == 1:
		f.kind = sepPoints
		localPointA := proxyA.Vertices[cache.IndexA[0]]
		localPointB := proxyB.Vertices[cache.IndexB[0]]
		pointA := Apply(xfA, localPointA)
		pointB := Apply(xfB, localPointB)
		f.axis = pointB.Sub(pointA)
		axis, s := f.axis.Normalize()
		f.axis = axis
		return s

	case cache.IndexA[0] == cache.IndexA[1]:
		f.kind = sepFaceB
		localPointB1 := proxyB.Vertices[cache.IndexB[0]]
		localPointB2 := proxyB.Vertices[cache.IndexB[1]]

		axis := CrossVS(localPointB2.Sub(localPointB1), 1.0)
		axis, _ = axis.Normalize()
		f.axis = axis
		normal := MulRotVec2(xfB.Q, f.axis)

		f.localPoint = localPointB1.Add(localPointB2).Mul(0.5)
		pointB := Apply(xfB, f.localPoint)

		localPointA := proxyA.Vertices[cache.IndexA[0]]
		pointA := Apply(xfA, localPointA)

		s := Dot(pointA.Sub(pointB), normal)
		if s < 0 {
			f.axis = f.axis.Neg()
			s = -s
		}
		return s

	default:
		f.kind = sepFaceA
		localPointA1 := proxyA.Vertices[cache.IndexA[0]]
		localPointA2 := proxyA.Vertices[cache.IndexA[1]]

		axis := CrossVS(localPointA2.Sub(localPointA1), 1.0)
		axis, _ = axis.Normalize()
		f.axis = axis
		normal := MulRotVec2(xfA.Q, f.axis)

		f.localPoint = localPointA1.Add(localPointA2).Mul(0.5)
		pointA := Apply(xfA, f.localPoint)

		localPointB := proxyB.Vertices[cache.IndexB[0]]
		pointB := Apply(xfB, localPointB)

		s := Dot(pointB.Sub(pointA), normal)
		if s < 0 {
			f.axis = f.axis.Neg()
			s = -s
		}
		return s
	}
}

func (f *separationFunction) findMinSeparation(t float64) (indexA, indexB int, separation float64) {
	xfA := f.sweepA.GetTransform(t)
	xfB := f.sweepB.GetTransform(t)

	switch f.kind {
	case sepPoints:
		axisA := MulTRotVec2(xfA.Q, f.axis)
		axisB := MulTRotVec2(xfB.Q, f.axis.Neg())

		indexA = f.proxyA.support(axisA)
		indexB = f.proxyB.support(axisB)

		pointA := Apply(xfA, f.proxyA.Vertices[indexA])
		pointB := Apply(xfB, f.proxyB.Vertices[indexB])
		return indexA, indexB, Dot(pointB.Sub(pointA), f.axis)

	case sepFaceA:
		normal := MulRotVec2(xfA.Q, f.axis)
		pointA := Apply(xfA, f.localPoint)
		axisB := MulTRotVec2(xfB.Q, normal.Neg())

		indexA = -1
		indexB = f.proxyB.support(axisB)
		pointB := Apply(xfB, f.proxyB.Vertices[indexB])
		return indexA, indexB, Dot(pointB.Sub(pointA), normal)

	default:
		normal := MulRotVec2(xfB.Q, f.axis)
		pointB := Apply(xfB, f.localPoint)
		axisA := MulTRotVec2(xfA.Q, normal.Neg())

		indexB = -1
		indexA = f.proxyA.support(axisA)
		pointA := Apply(xfA, f.proxyA.Vertices[indexA])
		return indexA, indexB, Dot(pointA.Sub(pointB), normal)
	}
}

func (f *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := f.sweepA.GetTransform(t)
	xfB := f.sweepB.GetTransform(t)

	switch f.kind {
	case sepPoints:
		pointA := Apply(xfA, f.proxyA.Vertices[indexA])
		pointB := Apply(xfB, f.proxyB.Vertices[indexB])
		return Dot(pointB.Sub(pointA), f.axis)

	case sepFaceA:
		normal := MulRotVec2(xfA.Q, f.axis)
		pointA := Apply(xfA, f.localPoint)
		pointB := Apply(xfB, f.proxyB.Vertices[indexB])
		return Dot(pointB.Sub(pointA), normal)

	default:
		normal := MulRotVec2(xfB.Q, f.axis)
		pointB := Apply(xfB, f.localPoint)
		pointA := Apply(xfA, f.proxyA.Vertices[indexA])
		return Dot(pointA.Sub(pointB), normal)
	}
}

// TimeOfImpact computes the first time in [0, TMax] at which the two swept
// proxies approach within target separation of each other, via the local
// separating-axis method: GJK finds a candidate axis, then a mix of
// bisection and the secant rule root-finds the time the separation along
// that axis first reaches the target, repeating until the axis search
// itself stops making progress. Spec 4.4's TOI sub-stepping calls this once
// per candidate sub-step.
func TimeOfImpact(input TOIInput) TOIOutput {
	output := TOIOutput{State: TOIUnknown, T: input.TMax}

	proxyA, proxyB := &input.ProxyA, &input.ProxyB

	sweepA := input.SweepA
	sweepB := input.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := math.Max(LinearSlop, totalRadius-3.0*LinearSlop)
	tolerance := 0.25 * LinearSlop

	t1 := 0.0
	const maxIterations = 20
	iter := 0

	cache := &SimplexCache{}
	distanceInput := DistanceInput{
		ProxyA:   input.ProxyA,
		ProxyB:   input.ProxyB,
		UseRadii: false,
	}

	for {
		xfA := sweepA.GetTransform(t1)
		xfB := sweepB.GetTransform(t1)

		distanceInput.TransformA = xfA
		distanceInput.TransformB = xfB
		distanceOutput := ComputeDistance(cache, distanceInput)

		if distanceOutput.Distance <= 0 {
			output.State = TOIOverlapped
			output.T = 0
			break
		}

		if distanceOutput.Distance < target+tolerance {
			output.State = TOITouching
			output.T = t1
			break
		}

		var fcn separationFunction
		fcn.initialize(cache, proxyA, sweepA, proxyB, sweepB, t1)

		done := false
		t2 := tMax
		pushBackIter := 0

		for {
			indexA, indexB, s2 := fcn.findMinSeparation(t2)

			if s2 > target+tolerance {
				output.State = TOISeparated
				output.T = tMax
				done = true
				break
			}

			if s2 > target-tolerance {
				t1 = t2
				break
			}

			s1 := fcn.evaluate(indexA, indexB, t1)

			if s1 < target-tolerance {
				output.State = TOIFailed
				output.T = t1
				done = true
				break
			}

			if s1 <= target+tolerance {
				output.State = TOITouching
				output.T = t1
				done = true
				break
			}

			rootIterCount := 0
			a1, a2 := t1, t2

			for {
				var t float64
				if rootIterCount&1 != 0 {
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					t = 0.5 * (a1 + a2)
				}
				rootIterCount++

				s := fcn.evaluate(indexA, indexB, t)

				if math.Abs(s-target) < tolerance {
					t2 = t
					break
				}

				if s > target {
					a1 = t
					s1 = s
				} else {
					a2 = t
					s2 = s
				}

				if rootIterCount == 50 {
					break
				}
			}

			pushBackIter++
			if pushBackIter == MaxPolygonVertices {
				break
			}
		}

		iter++
		if done {
			break
		}
		if iter == maxIterations {
			output.State = TOIFailed
			output.T = t1
			break
		}
	}

	return output
}
