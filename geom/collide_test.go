package geom

import "testing"

// TestCollideCirclesOverlapping checks the two-unit-circles scenario named in
// spec 8: two radius-1 circles 1.5 apart overlap by 0.5 along the x-axis with
// a single contact point and a normal pointing from A to B.
func TestCollideCirclesOverlapping(t *testing.T) {
	circleA := Circle{Center: Zero2, R: 1}
	circleB := Circle{Center: Zero2, R: 1}
	xfA := NewTransform(Vec2{0, 0}, 0)
	xfB := NewTransform(Vec2{1.5, 0}, 0)

	m := CollideCircles(circleA, circleA.R, xfA, circleB, circleB.R, xfB)

	if m.PointCount != 1 {
		t.Fatalf("PointCount = %d, want 1", m.PointCount)
	}

	var world WorldManifold
	world.ComputeWorldManifold(&m, xfA, circleA.R, xfB, circleB.R)

	if Distance(world.Normal, Vec2{1, 0}) > 1e-9 {
		t.Errorf("Normal = %v, want (1,0)", world.Normal)
	}
	wantSep := -0.5
	if diff := world.Separations[0] - wantSep; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Separation = %v, want %v", world.Separations[0], wantSep)
	}
}

func TestCollideCirclesSeparated(t *testing.T) {
	circleA := Circle{Center: Zero2, R: 1}
	circleB := Circle{Center: Zero2, R: 1}
	xfA := NewTransform(Vec2{0, 0}, 0)
	xfB := NewTransform(Vec2{5, 0}, 0)

	m := CollideCircles(circleA, circleA.R, xfA, circleB, circleB.R, xfB)
	if m.PointCount != 0 {
		t.Fatalf("PointCount = %d, want 0 for non-overlapping circles", m.PointCount)
	}
}

// TestCollidePolygonsIdenticalSquaresOverlap checks spec 8's two-identical-
// squares scenario: two unit boxes (half-extent 0.5) overlapping by 0.2 along x
// produce a two-point face manifold with a normal along the axis of
// penetration.
func TestCollidePolygonsIdenticalSquaresOverlap(t *testing.T) {
	box := NewBox(0.5, 0.5)
	xfA := NewTransform(Vec2{0, 0}, 0)
	xfB := NewTransform(Vec2{0.8, 0}, 0)

	m := CollidePolygons(box.Poly, box.Radius, xfA, box.Poly, box.Radius, xfB)

	if m.PointCount != 2 {
		t.Fatalf("PointCount = %d, want 2 for two squares overlapping face-to-face", m.PointCount)
	}

	var world WorldManifold
	world.ComputeWorldManifold(&m, xfA, box.Radius, xfB, box.Radius)

	wantNormal := Vec2{1, 0}
	if Distance(Abs2(world.Normal), wantNormal) > 1e-9 {
		t.Errorf("Normal = %v, want +/-(1,0)", world.Normal)
	}
	for i := 0; i < m.PointCount; i++ {
		if world.Separations[i] >= 0 {
			t.Errorf("point %d separation = %v, want negative (penetrating)", i, world.Separations[i])
		}
	}
}

func TestCollidePolygonsDisjointBoxesNoContact(t *testing.T) {
	box := NewBox(0.5, 0.5)
	xfA := NewTransform(Vec2{0, 0}, 0)
	xfB := NewTransform(Vec2{10, 0}, 0)

	m := CollidePolygons(box.Poly, box.Radius, xfA, box.Poly, box.Radius, xfB)
	if m.PointCount != 0 {
		t.Fatalf("PointCount = %d, want 0 for disjoint boxes", m.PointCount)
	}
}

// TestCollideDispatchSwapsReverseOrder exercises the ShouldSwap path: a
// circle-vs-polygon call in the "wrong" order (circle as shapeA) must produce
// the same world contact point as the canonical polygon-as-A ordering, with
// the opposite normal, since the world normal always points from A to B.
func TestCollideDispatchSwapsReverseOrder(t *testing.T) {
	box := NewBox(1, 1)
	circle := NewCircle(Zero2, 0.5)
	xfBox := NewTransform(Vec2{0, 0}, 0)
	xfCircle := NewTransform(Vec2{1.3, 0}, 0)

	canonical := Collide(box, 0, xfBox, circle, 0, xfCircle)
	reversed := Collide(circle, 0, xfCircle, box, 0, xfBox)

	if canonical.PointCount != 1 || reversed.PointCount != 1 {
		t.Fatalf("expected both orderings to find a contact, got canonical=%d reversed=%d",
			canonical.PointCount, reversed.PointCount)
	}

	var wCanonical, wReversed WorldManifold
	wCanonical.ComputeWorldManifold(&canonical, xfBox, box.Radius, xfCircle, circle.Radius)
	wReversed.ComputeWorldManifold(&reversed, xfCircle, circle.Radius, xfBox, box.Radius)

	if Distance(wCanonical.Normal, wReversed.Normal.Neg()) > 1e-9 {
		t.Errorf("normals are not opposite: canonical=%v reversed=%v", wCanonical.Normal, wReversed.Normal)
	}
	if Distance(wCanonical.Points[0], wReversed.Points[0]) > 1e-9 {
		t.Errorf("contact points disagree: canonical=%v reversed=%v", wCanonical.Points[0], wReversed.Points[0])
	}
}

// TestCollideChainChildAgainstCircle exercises a multi-edge chain shape,
// the geometry underlying spec 8 scenario 5's character-on-chain case: each
// edge is a distinct child, and a circle resting over the middle edge must
// only generate a manifold against that child, not its neighbors.
func TestCollideChainChildAgainstCircle(t *testing.T) {
	chain := NewChain([]Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	xfChain := NewTransform(Zero2, 0)

	circle := NewCircle(Zero2, 0.5)
	xfCircle := NewTransform(Vec2{1.5, 0.3}, 0)

	if got := chain.ChildCount(); got != 3 {
		t.Fatalf("ChildCount() = %d, want 3", got)
	}

	tests := []struct {
		child int
		want  bool
	}{
		{0, false},
		{1, true},
		{2, false},
	}
	for _, tt := range tests {
		m := Collide(chain, tt.child, xfChain, circle, 0, xfCircle)
		if touching := m.PointCount > 0; touching != tt.want {
			t.Errorf("child %d touching = %v, want %v", tt.child, touching, tt.want)
		}
	}
}

func TestClipSegmentToLineCases(t *testing.T) {
	seg := func(a, b Vec2) [2]ClipVertex {
		return [2]ClipVertex{{V: a}, {V: b}}
	}

	tests := []struct {
		name     string
		vIn      [2]ClipVertex
		normal   Vec2
		offset   float64
		wantN    int
	}{
		{"fully on keep side", seg(Vec2{-1, 0}, Vec2{-2, 0}), Vec2{1, 0}, 0, 2},
		{"fully on cull side", seg(Vec2{1, 0}, Vec2{2, 0}), Vec2{1, 0}, 0, 0},
		{"crossing", seg(Vec2{-1, 0}, Vec2{1, 0}), Vec2{1, 0}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n := ClipSegmentToLine(tt.vIn, tt.normal, tt.offset, 0)
			if n != tt.wantN {
				t.Fatalf("n = %d, want %d", n, tt.wantN)
			}
			for i := 0; i < n; i++ {
				if d := Dot(tt.normal, out[i].V) - tt.offset; d > 1e-9 {
					t.Errorf("output point %v is on the cull side (d=%v)", out[i].V, d)
				}
			}
		})
	}
}
