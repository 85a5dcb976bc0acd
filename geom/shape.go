package geom

// Kind identifies which concrete geometry a Shape carries. The spec bounds
// this set at the engine, not the user, so Shape is a closed tagged union
// rather than an interface a caller could implement.
type Kind uint8

const (
	KindCircle Kind = iota
	KindEdge
	KindPolygon
	KindChain
)

const (
	MaxPolygonVertices = 8
	PolygonRadius      = 2.0 * LinearSlop
)

// MassData is the mass, centroid (about the shape's local origin) and
// rotational inertia about the local origin that ComputeMass produces.
type MassData struct {
	Mass   float64
	Center Vec2
	I      float64
}

// Shape is one child primitive of a fixture. Circle and polygon always have
// exactly one child; edge has one; chain has one child per edge segment and
// dispatches ComputeAABB/RayCast against a synthesized edge (a chain is
// massless).
type Shape struct {
	Kind Kind
	// Radius is the vertex/skin radius: the circle's own radius (Circle.R)
	// for circles, PolygonRadius for polygon/edge/chain unless overridden.
	Radius float64

	Circle Circle
	Edge   Edge
	Poly   Polygon
	Chain  Chain
}

type Circle struct {
	Center Vec2
	R      float64
}

// Edge is a line segment with optional ghost vertices used to suppress
// collisions against an edge's back side and against vertices a neighboring
// edge owns (see EdgeChild).
type Edge struct {
	V1, V2             Vec2
	V0, V3             Vec2
	HasVertex0         bool
	HasVertex3         bool
}

type Polygon struct {
	Centroid Vec2
	Vertices [MaxPolygonVertices]Vec2
	Normals  [MaxPolygonVertices]Vec2
	Count    int
}

// Chain is a sequence of edges with implicit ghost connectivity: child i is
// the edge (Vertices[i], Vertices[i+1]) with ghost neighbors Vertices[i-1]
// and Vertices[i+2] (wrapping for loops via HasPrev/HasNextVertex at the
// open ends).
type Chain struct {
	Vertices       []Vec2
	PrevVertex     Vec2
	NextVertex     Vec2
	HasPrevVertex  bool
	HasNextVertex  bool
}

func NewCircle(center Vec2, r float64) Shape {
	return Shape{Kind: KindCircle, Radius: r, Circle: Circle{Center: center, R: r}}
}

func NewEdge(v1, v2 Vec2) Shape {
	return Shape{Kind: KindEdge, Radius: PolygonRadius, Edge: Edge{V1: v1, V2: v2}}
}

// EdgeWithGhosts attaches ghost vertices for smooth chain collision.
func EdgeWithGhosts(v0, v1, v2, v3 Vec2) Shape {
	return Shape{Kind: KindEdge, Radius: PolygonRadius, Edge: Edge{
		V0: v0, V1: v1, V2: v2, V3: v3, HasVertex0: true, HasVertex3: true,
	}}
}

// NewBox builds an axis-aligned box polygon centered on the origin.
func NewBox(hx, hy float64) Shape {
	p := Polygon{
		Count: 4,
		Vertices: [MaxPolygonVertices]Vec2{
			{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy},
		},
		Normals: [MaxPolygonVertices]Vec2{
			{0, -1}, {1, 0}, {0, 1}, {-1, 0},
		},
	}
	return Shape{Kind: KindPolygon, Radius: PolygonRadius, Poly: p}
}

// NewPolygon computes the convex hull of vertices (gift wrapping, as the
// teacher does) and derives edge normals and the centroid.
func NewPolygon(vertices []Vec2) (Shape, error) {
	if len(vertices) < 3 {
		return Shape{}, ErrDegeneratePolygon
	}
	n := len(vertices)
	if n > MaxPolygonVertices {
		n = MaxPolygonVertices
	}

	ps := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		v := vertices[i]
		unique := true
		for _, p := range ps {
			if DistanceSquared(v, p) < (0.5*LinearSlop)*(0.5*LinearSlop) {
				unique = false
				break
			}
		}
		if unique {
			ps = append(ps, v)
		}
	}
	n = len(ps)
	if n < 3 {
		return Shape{}, ErrDegeneratePolygon
	}

	i0 := 0
	x0 := ps[0].X
	for i := 1; i < n; i++ {
		x := ps[i].X
		if x > x0 || (x == x0 && ps[i].Y < ps[i0].Y) {
			i0, x0 = i, x
		}
	}

	hull := make([]int, 0, MaxPolygonVertices)
	ih := i0
	for {
		hull = append(hull, ih)
		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}
			r := ps[ie].Sub(ps[hull[len(hull)-1]])
			v := ps[j].Sub(ps[hull[len(hull)-1]])
			c := Cross(r, v)
			if c < 0 || (c == 0 && v.LengthSquared() > r.LengthSquared()) {
				ie = j
			}
		}
		ih = ie
		if ie == i0 || len(hull) >= MaxPolygonVertices {
			break
		}
	}

	m := len(hull)
	if m < 3 {
		return Shape{}, ErrDegeneratePolygon
	}

	var poly Polygon
	poly.Count = m
	for i := 0; i < m; i++ {
		poly.Vertices[i] = ps[hull[i]]
	}
	for i := 0; i < m; i++ {
		i2 := 0
		if i+1 < m {
			i2 = i + 1
		}
		e := poly.Vertices[i2].Sub(poly.Vertices[i])
		if e.LengthSquared() <= Epsilon*Epsilon {
			return Shape{}, ErrDegeneratePolygon
		}
		normal := CrossVS(e, 1.0)
		normal, _ = normal.Normalize()
		poly.Normals[i] = normal
	}
	poly.Centroid = computeCentroid(poly.Vertices[:m])

	return Shape{Kind: KindPolygon, Radius: PolygonRadius, Poly: poly}, nil
}

func computeCentroid(vs []Vec2) Vec2 {
	count := len(vs)
	c := Zero2
	area := 0.0
	pRef := Zero2
	for _, v := range vs {
		pRef = pRef.Add(v)
	}
	pRef = pRef.Mul(1.0 / float64(count))

	inv3 := 1.0 / 3.0
	for i := 0; i < count; i++ {
		p2 := vs[i]
		p3 := vs[0]
		if i+1 < count {
			p3 = vs[i+1]
		}
		e1 := p2.Sub(pRef)
		e2 := p3.Sub(pRef)
		d := Cross(e1, e2)
		triArea := 0.5 * d
		area += triArea
		c = c.Add(pRef.Add(p2).Add(p3).Mul(triArea * inv3))
	}
	return c.Mul(1.0 / area)
}

// NewChain builds an open chain from vertices. For a closed loop use
// NewLoop, which repeats the first vertex and sets the wrap-around ghosts.
func NewChain(vertices []Vec2) Shape {
	vs := make([]Vec2, len(vertices))
	copy(vs, vertices)
	return Shape{Kind: KindChain, Radius: PolygonRadius, Chain: Chain{Vertices: vs}}
}

// NewLoop builds a closed chain: count+1 vertices with the last equal to the
// first, and ghost vertices wrapping around the seam.
func NewLoop(vertices []Vec2) Shape {
	count := len(vertices)
	vs := make([]Vec2, count+1)
	copy(vs, vertices)
	vs[count] = vs[0]
	c := Chain{
		Vertices:      vs,
		PrevVertex:    vs[len(vs)-2],
		NextVertex:    vs[1],
		HasPrevVertex: true,
		HasNextVertex: true,
	}
	return Shape{Kind: KindChain, Radius: PolygonRadius, Chain: c}
}

// ChildCount returns the number of broad-phase children the shape has: one
// for circle/edge/polygon, len(vertices)-1 for a chain.
func (s Shape) ChildCount() int {
	switch s.Kind {
	case KindChain:
		n := len(s.Chain.Vertices) - 1
		if n < 0 {
			return 0
		}
		return n
	default:
		return 1
	}
}

// EdgeChild materializes child index child of a chain as a standalone Edge
// with ghost vertices pulled from its chain neighbors.
func (c Chain) EdgeChild(child int) Edge {
	e := Edge{V1: c.Vertices[child], V2: c.Vertices[child+1]}
	if child > 0 {
		e.V0 = c.Vertices[child-1]
		e.HasVertex0 = true
	} else {
		e.V0 = c.PrevVertex
		e.HasVertex0 = c.HasPrevVertex
	}
	if child+2 < len(c.Vertices) {
		e.V3 = c.Vertices[child+2]
		e.HasVertex3 = true
	} else {
		e.V3 = c.NextVertex
		e.HasVertex3 = c.HasNextVertex
	}
	return e
}
