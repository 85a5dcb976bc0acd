package geom

// DistanceProxy is a shape reduced to the vertex set GJK needs: a point,
// a segment, or a convex polygon's vertex loop, plus its skin radius.
type DistanceProxy struct {
	Vertices []Vec2
	Radius   float64
}

// SetShape fills p from child childIndex of shape, the way the solver
// builds one proxy per fixture before every distance/TOI query.
func (p *DistanceProxy) SetShape(shape Shape, childIndex int) {
	switch shape.Kind {
	case KindCircle:
		p.Vertices = []Vec2{shape.Circle.Center}
		p.Radius = shape.Radius
	case KindPolygon:
		p.Vertices = shape.Poly.Vertices[:shape.Poly.Count]
		p.Radius = shape.Radius
	case KindEdge:
		p.Vertices = []Vec2{shape.Edge.V1, shape.Edge.V2}
		p.Radius = shape.Radius
	case KindChain:
		e := shape.Chain.EdgeChild(childIndex)
		p.Vertices = []Vec2{e.V1, e.V2}
		p.Radius = shape.Radius
	}
}

func (p DistanceProxy) support(d Vec2) int {
	best := 0
	bestValue := Dot(p.Vertices[0], d)
	for i := 1; i < len(p.Vertices); i++ {
		if v := Dot(p.Vertices[i], d); v > bestValue {
			bestValue = v
			best = i
		}
	}
	return best
}

// SimplexCache warm-starts Distance across steps: the vertex indices that
// formed the previous query's simplex, plus the metric used to decide
// whether that cache is still close enough to reuse.
type SimplexCache struct {
	Metric float64
	Count  int
	IndexA [3]int
	IndexB [3]int
}

type simplexVertex struct {
	wA, wB, w Vec2
	a         float64
	indexA    int
	indexB    int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, proxyA *DistanceProxy, xfA Transform, proxyB *DistanceProxy, xfB Transform) {
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		v.wA = Apply(xfA, proxyA.Vertices[v.indexA])
		v.wB = Apply(xfB, proxyB.Vertices[v.indexB])
		v.w = v.wB.Sub(v.wA)
		v.a = 0
	}

	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < Epsilon {
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.v[0]
		v.indexA, v.indexB = 0, 0
		v.wA = Apply(xfA, proxyA.Vertices[0])
		v.wB = Apply(xfB, proxyB.Vertices[0])
		v.w = v.wB.Sub(v.wA)
		v.a = 1
		s.count = 1
	}
}

func (s simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s simplex) searchDirection() Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		sgn := Cross(e12, s.v[0].w.Neg())
		if sgn > 0 {
			return CrossSV(1, e12)
		}
		return CrossVS(e12, 1)
	}
	return Zero2
}

func (s simplex) witnessPoints() (pA, pB Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB = s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB
	case 3:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a)).Add(s.v[2].wA.Mul(s.v[2].a))
		return pA, pA
	}
	return Zero2, Zero2
}

func (s simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0
	case 2:
		return Distance(s.v[0].w, s.v[1].w)
	case 3:
		return Cross(s.v[1].w.Sub(s.v[0].w), s.v[2].w.Sub(s.v[0].w))
	}
	return 0
}

// solve2 reduces a 2-point simplex to its closest feature to the origin
// using barycentric coordinates: a vertex or the full segment.
func (s *simplex) solve2() {
	w1, w2 := s.v[0].w, s.v[1].w
	e12 := w2.Sub(w1)

	d12_2 := -Dot(w1, e12)
	if d12_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	d12_1 := Dot(w2, e12)
	if d12_1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	inv := 1.0 / (d12_1 + d12_2)
	s.v[0].a = d12_1 * inv
	s.v[1].a = d12_2 * inv
	s.count = 2
}

// solve3 reduces a 3-point simplex the same way, across vertex, edge and
// interior-triangle regions.
func (s *simplex) solve3() {
	w1, w2, w3 := s.v[0].w, s.v[1].w, s.v[2].w

	e12 := w2.Sub(w1)
	w1e12 := Dot(w1, e12)
	w2e12 := Dot(w2, e12)
	d12_1 := w2e12
	d12_2 := -w1e12

	e13 := w3.Sub(w1)
	w1e13 := Dot(w1, e13)
	w3e13 := Dot(w3, e13)
	d13_1 := w3e13
	d13_2 := -w1e13

	e23 := w3.Sub(w2)
	w2e23 := Dot(w2, e23)
	w3e23 := Dot(w3, e23)
	d23_1 := w3e23
	d23_2 := -w2e23

	n123 := Cross(e12, e13)
	d123_1 := n123 * Cross(w2, w3)
	d123_2 := n123 * Cross(w3, w1)
	d123_3 := n123 * Cross(w1, w2)

	if d12_2 <= 0 && d13_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	if d12_1 > 0 && d12_2 > 0 && d123_3 <= 0 {
		inv := 1.0 / (d12_1 + d12_2)
		s.v[0].a = d12_1 * inv
		s.v[1].a = d12_2 * inv
		s.count = 2
		return
	}

	if d13_1 > 0 && d13_2 > 0 && d123_2 <= 0 {
		inv := 1.0 / (d13_1 + d13_2)
		s.v[0].a = d13_1 * inv
		s.v[2].a = d13_2 * inv
		s.count = 2
		s.v[1] = s.v[2]
		return
	}

	if d12_1 <= 0 && d23_2 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	if d13_1 <= 0 && d23_1 <= 0 {
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]
		return
	}

	if d23_1 > 0 && d23_2 > 0 && d123_1 <= 0 {
		inv := 1.0 / (d23_1 + d23_2)
		s.v[1].a = d23_1 * inv
		s.v[2].a = d23_2 * inv
		s.count = 2
		s.v[0] = s.v[2]
		return
	}

	inv := 1.0 / (d123_1 + d123_2 + d123_3)
	s.v[0].a = d123_1 * inv
	s.v[1].a = d123_2 * inv
	s.v[2].a = d123_3 * inv
	s.count = 3
}

// DistanceInput bundles the two proxies, their placement, and whether to
// account for vertex radii in the result.
type DistanceInput struct {
	ProxyA, ProxyB DistanceProxy
	TransformA     Transform
	TransformB     Transform
	UseRadii       bool
}

// DistanceOutput is the closest-point pair between two proxies and the
// distance between them.
type DistanceOutput struct {
	PointA, PointB Vec2
	Distance       float64
	Iterations     int
}

const gjkMaxIters = 20

// ComputeDistance runs GJK with Voronoi-region simplex reduction to find
// the closest points between two convex proxies, warm-starting from cache
// and writing the resulting simplex back into it. This underlies both TOI
// sub-stepping and any direct closest-point query (spec 4.4).
func ComputeDistance(cache *SimplexCache, input DistanceInput) DistanceOutput {
	proxyA, proxyB := input.ProxyA, input.ProxyB
	xfA, xfB := input.TransformA, input.TransformB

	var s simplex
	s.readCache(cache, &proxyA, xfA, &proxyB, xfB)

	var saveA, saveB [3]int
	iter := 0

	for iter < gjkMaxIters {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		if d.LengthSquared() < Epsilon*Epsilon {
			break
		}

		vertex := &s.v[s.count]
		vertex.indexA = proxyA.support(MulTRotVec2(xfA.Q, d.Neg()))
		vertex.wA = Apply(xfA, proxyA.Vertices[vertex.indexA])
		vertex.indexB = proxyB.support(MulTRotVec2(xfB.Q, d))
		vertex.wB = Apply(xfB, proxyB.Vertices[vertex.indexB])
		vertex.w = vertex.wB.Sub(vertex.wA)

		iter++

		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		s.count++
	}

	pA, pB := s.witnessPoints()
	output := DistanceOutput{
		PointA:     pA,
		PointB:     pB,
		Distance:   Distance(pA, pB),
		Iterations: iter,
	}
	s.writeCache(cache)

	if input.UseRadii {
		rA, rB := proxyA.Radius, proxyB.Radius
		if output.Distance > rA+rB && output.Distance > Epsilon {
			output.Distance -= rA + rB
			normal, _ := output.PointB.Sub(output.PointA).Normalize()
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			mid := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA, output.PointB = mid, mid
			output.Distance = 0
		}
	}

	return output
}
