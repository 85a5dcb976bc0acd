package broadphase

import (
	"testing"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

func box(cx, cy, hx, hy float64) geom.AABB {
	return geom.AABB{
		LowerBound: geom.Vec2{X: cx - hx, Y: cy - hy},
		UpperBound: geom.Vec2{X: cx + hx, Y: cy + hy},
	}
}

// TestCreateProxyFatAABBContainsTight checks the invariant every dynamic-tree
// leaf must hold: the stored (fattened) AABB always contains the tight AABB
// the proxy was created with.
func TestCreateProxyFatAABBContainsTight(t *testing.T) {
	tree := NewDynamicTree()
	tight := box(0, 0, 1, 1)
	id := tree.CreateProxy(tight, 42)

	fat := tree.GetFatAABB(id)
	if !geom.Contains(fat, tight) {
		t.Errorf("fat AABB %v does not contain tight AABB %v", fat, tight)
	}
	if tree.GetUserData(id) != 42 {
		t.Errorf("GetUserData = %d, want 42", tree.GetUserData(id))
	}
}

// TestMoveProxySmallMovementKeepsSameFatAABB exercises the fattened-AABB
// early-out: a move that stays within the existing fat margin should not
// force a new leaf AABB.
func TestMoveProxySmallMovementKeepsSameFatAABB(t *testing.T) {
	tree := NewDynamicTree()
	tight := box(0, 0, 0.1, 0.1)
	id := tree.CreateProxy(tight, 1)
	fatBefore := tree.GetFatAABB(id)

	moved := box(0.001, 0, 0.1, 0.1)
	changed := tree.MoveProxy(id, moved, geom.Vec2{X: 0.001, Y: 0})
	if changed {
		t.Errorf("MoveProxy reported a change for a move inside the fat margin: fat AABB %v -> %v", fatBefore, tree.GetFatAABB(id))
		return
	}

	if !geom.Contains(fatBefore, moved) {
		t.Errorf("MoveProxy reported no change but old fat AABB %v no longer contains %v", fatBefore, moved)
	}
}

// TestMoveProxyLargeMovementForcesNewFatAABB checks that a large displacement
// outside the fattened margin is reported as a change and the new fat AABB
// contains the destination tight AABB.
func TestMoveProxyLargeMovementForcesNewFatAABB(t *testing.T) {
	tree := NewDynamicTree()
	tight := box(0, 0, 0.1, 0.1)
	id := tree.CreateProxy(tight, 1)

	moved := box(50, 50, 0.1, 0.1)
	changed := tree.MoveProxy(id, moved, geom.Vec2{X: 50, Y: 50})
	if !changed {
		t.Fatalf("MoveProxy across a large displacement should report a change")
	}

	fat := tree.GetFatAABB(id)
	if !geom.Contains(fat, moved) {
		t.Errorf("fat AABB %v does not contain moved AABB %v", fat, moved)
	}
}

// TestQueryFindsOverlappingProxies checks that Query visits every proxy
// whose fat AABB overlaps the query region and none that are clearly
// disjoint from it.
func TestQueryFindsOverlappingProxies(t *testing.T) {
	tree := NewDynamicTree()
	near := tree.CreateProxy(box(0, 0, 1, 1), 1)
	far := tree.CreateProxy(box(100, 100, 1, 1), 2)

	found := map[int]bool{}
	tree.Query(box(0, 0, 2, 2), func(proxyID int) bool {
		found[proxyID] = true
		return true
	})

	if !found[near] {
		t.Errorf("Query missed the nearby proxy")
	}
	if found[far] {
		t.Errorf("Query visited the far proxy, want it excluded")
	}
}

func TestDestroyProxyRemovesIt(t *testing.T) {
	tree := NewDynamicTree()
	id := tree.CreateProxy(box(0, 0, 1, 1), 7)
	tree.DestroyProxy(id)

	visited := false
	tree.Query(box(-10, -10, 20, 20), func(proxyID int) bool {
		if proxyID == id {
			visited = true
		}
		return true
	})
	if visited {
		t.Errorf("destroyed proxy still visited by Query")
	}
}

// TestTreeHeightGrowsWithManyProxies is a loose sanity check that the tree
// actually balances rather than degenerating into a single long chain: 64
// leaves in a chain would give height 63, so the bound is 2*log2(64) = 12.
func TestTreeHeightGrowsWithManyProxies(t *testing.T) {
	tree := NewDynamicTree()
	const n = 64
	for i := 0; i < n; i++ {
		x := float64(i) * 3
		tree.CreateProxy(box(x, 0, 1, 1), i)
	}

	h := tree.GetHeight()
	if h <= 0 {
		t.Fatalf("GetHeight = %d, want > 0 for %d proxies", h, n)
	}
	if h > 12 {
		t.Errorf("GetHeight = %d looks degenerate for %d proxies", h, n)
	}
}
