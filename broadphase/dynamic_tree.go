// Package broadphase implements the dynamic AABB tree that narrows down
// candidate fixture pairs before narrow-phase runs on them. Leaves carry a
// fattened AABB so a body can drift by a small amount without triggering a
// tree update, the way spec 4.1 describes the broad-phase contract.
package broadphase

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

const nullNode = -1

type treeNode struct {
	aabb geom.AABB

	userData int

	parent int
	next   int

	child1 int
	child2 int

	height int
}

func (n treeNode) isLeaf() bool { return n.child1 == nullNode }

// DynamicTree arranges proxies in a binary tree to accelerate AABB and ray
// queries. Nodes are pooled and relocatable: callers address a proxy by the
// small integer index CreateProxy returns, never by pointer, so the pool
// can grow without invalidating anything a caller is holding.
type DynamicTree struct {
	root int

	nodes        []treeNode
	nodeCount    int
	nodeCapacity int

	freeList int

	insertionCount int
}

// NewDynamicTree builds an empty tree with room for 16 nodes, growing
// geometrically as CreateProxy needs more.
func NewDynamicTree() *DynamicTree {
	t := &DynamicTree{
		root:         nullNode,
		nodeCapacity: 16,
	}
	t.nodes = make([]treeNode, t.nodeCapacity)
	for i := 0; i < t.nodeCapacity-1; i++ {
		t.nodes[i].next = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[t.nodeCapacity-1].next = nullNode
	t.nodes[t.nodeCapacity-1].height = -1
	t.freeList = 0
	return t
}

func (t *DynamicTree) GetUserData(proxyID int) int { return t.nodes[proxyID].userData }

func (t *DynamicTree) GetFatAABB(proxyID int) geom.AABB { return t.nodes[proxyID].aabb }

func (t *DynamicTree) allocateNode() int {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, make([]treeNode, t.nodeCapacity)...)
		for i := t.nodeCount; i < 2*t.nodeCapacity-1; i++ {
			t.nodes[i].next = i + 1
			t.nodes[i].height = -1
		}
		t.nodes[2*t.nodeCapacity-1].next = nullNode
		t.nodes[2*t.nodeCapacity-1].height = -1
		t.freeList = t.nodeCount
		t.nodeCapacity *= 2
	}

	id := t.freeList
	t.freeList = t.nodes[id].next
	t.nodes[id] = treeNode{parent: nullNode, child1: nullNode, child2: nullNode, height: 0}
	t.nodeCount++
	return id
}

func (t *DynamicTree) freeNode(id int) {
	t.nodes[id].next = t.freeList
	t.nodes[id].height = -1
	t.freeList = id
	t.nodeCount--
}

// CreateProxy inserts a new leaf with a fattened copy of aabb, tagging it
// with userData (typically an encoded fixture/body handle), and returns the
// proxy id the caller uses for every later operation on this leaf.
func (t *DynamicTree) CreateProxy(aabb geom.AABB, userData int) int {
	id := t.allocateNode()

	r := geom.Vec2{X: geom.AABBExtension, Y: geom.AABBExtension}
	t.nodes[id].aabb = geom.AABB{LowerBound: aabb.LowerBound.Sub(r), UpperBound: aabb.UpperBound.Add(r)}
	t.nodes[id].userData = userData
	t.nodes[id].height = 0

	t.insertLeaf(id)
	return id
}

func (t *DynamicTree) DestroyProxy(proxyID int) {
	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// MoveProxy re-inserts proxyID with a new fattened AABB predictively
// extended along displacement, but only if aabb has actually escaped the
// leaf's current fat AABB — the containment check that lets most per-step
// body movement skip a tree update entirely.
func (t *DynamicTree) MoveProxy(proxyID int, aabb geom.AABB, displacement geom.Vec2) bool {
	if geom.Contains(t.nodes[proxyID].aabb, aabb) {
		return false
	}

	t.removeLeaf(proxyID)

	r := geom.Vec2{X: geom.AABBExtension, Y: geom.AABBExtension}
	b := geom.AABB{LowerBound: aabb.LowerBound.Sub(r), UpperBound: aabb.UpperBound.Add(r)}

	d := displacement.Mul(geom.AABBMultiplier)
	if d.X < 0 {
		b.LowerBound.X += d.X
	} else {
		b.UpperBound.X += d.X
	}
	if d.Y < 0 {
		b.LowerBound.Y += d.Y
	} else {
		b.UpperBound.Y += d.Y
	}

	t.nodes[proxyID].aabb = b
	t.insertLeaf(proxyID)
	return true
}

func (t *DynamicTree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[t.root].parent = nullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedAABB := geom.Combine(t.nodes[index].aabb, leafAABB)
		combinedArea := combinedAABB.Perimeter()

		cost := 2.0 * combinedArea
		inheritanceCost := 2.0 * (combinedArea - area)

		var cost1 float64
		if t.nodes[child1].isLeaf() {
			cost1 = geom.Combine(leafAABB, t.nodes[child1].aabb).Perimeter() + inheritanceCost
		} else {
			aabb := geom.Combine(leafAABB, t.nodes[child1].aabb)
			oldArea := t.nodes[child1].aabb.Perimeter()
			cost1 = (aabb.Perimeter() - oldArea) + inheritanceCost
		}

		var cost2 float64
		if t.nodes[child2].isLeaf() {
			cost2 = geom.Combine(leafAABB, t.nodes[child2].aabb).Perimeter() + inheritanceCost
		} else {
			aabb := geom.Combine(leafAABB, t.nodes[child2].aabb)
			oldArea := t.nodes[child2].aabb.Perimeter()
			cost2 = (aabb.Perimeter() - oldArea) + inheritanceCost
		}

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = geom.Combine(leafAABB, t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}

	index = t.nodes[leaf].parent
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		t.nodes[index].height = 1 + maxInt(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = geom.Combine(t.nodes[child1].aabb, t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		index := grandParent
		for index != nullNode {
			index = t.balance(index)

			child1 := t.nodes[index].child1
			child2 := t.nodes[index].child2
			t.nodes[index].aabb = geom.Combine(t.nodes[child1].aabb, t.nodes[child2].aabb)
			t.nodes[index].height = 1 + maxInt(t.nodes[child1].height, t.nodes[child2].height)

			index = t.nodes[index].parent
		}
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

// balance performs a single left or right rotation if node iA's subtree
// heights differ by more than one, returning the (possibly new) root of
// that subtree.
func (t *DynamicTree) balance(iA int) int {
	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}

	iB, iC := a.child1, a.child2
	b, c := &t.nodes[iB], &t.nodes[iC]

	balance := c.height - b.height

	if balance > 1 {
		iF, iG := c.child1, c.child2
		f, g := &t.nodes[iF], &t.nodes[iG]

		c.child1 = iA
		c.parent = a.parent
		a.parent = iC

		if c.parent != nullNode {
			if t.nodes[c.parent].child1 == iA {
				t.nodes[c.parent].child1 = iC
			} else {
				t.nodes[c.parent].child2 = iC
			}
		} else {
			t.root = iC
		}

		if f.height > g.height {
			c.child2 = iF
			a.child2 = iG
			g.parent = iA
			a.aabb = geom.Combine(b.aabb, g.aabb)
			c.aabb = geom.Combine(a.aabb, f.aabb)
			a.height = 1 + maxInt(b.height, g.height)
			c.height = 1 + maxInt(a.height, f.height)
		} else {
			c.child2 = iG
			a.child2 = iF
			f.parent = iA
			a.aabb = geom.Combine(b.aabb, f.aabb)
			c.aabb = geom.Combine(a.aabb, g.aabb)
			a.height = 1 + maxInt(b.height, f.height)
			c.height = 1 + maxInt(a.height, g.height)
		}
		return iC
	}

	if balance < -1 {
		iD, iE := b.child1, b.child2
		d, e := &t.nodes[iD], &t.nodes[iE]

		b.child1 = iA
		b.parent = a.parent
		a.parent = iB

		if b.parent != nullNode {
			if t.nodes[b.parent].child1 == iA {
				t.nodes[b.parent].child1 = iB
			} else {
				t.nodes[b.parent].child2 = iB
			}
		} else {
			t.root = iB
		}

		if d.height > e.height {
			b.child2 = iD
			a.child1 = iE
			e.parent = iA
			a.aabb = geom.Combine(c.aabb, e.aabb)
			b.aabb = geom.Combine(a.aabb, d.aabb)
			a.height = 1 + maxInt(c.height, e.height)
			b.height = 1 + maxInt(a.height, d.height)
		} else {
			b.child2 = iE
			a.child1 = iD
			d.parent = iA
			a.aabb = geom.Combine(c.aabb, d.aabb)
			b.aabb = geom.Combine(a.aabb, e.aabb)
			a.height = 1 + maxInt(c.height, d.height)
			b.height = 1 + maxInt(a.height, e.height)
		}
		return iB
	}

	return iA
}

func (t *DynamicTree) GetHeight() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

func (t *DynamicTree) GetAreaRatio() float64 {
	if t.root == nullNode {
		return 0
	}
	rootArea := t.nodes[t.root].aabb.Perimeter()
	totalArea := 0.0
	for i := 0; i < len(t.nodes); i++ {
		if t.nodes[i].height < 0 {
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}
	return totalArea / rootArea
}

// Query invokes callback for every leaf whose fat AABB overlaps aabb,
// stopping early if callback returns false.
func (t *DynamicTree) Query(aabb geom.AABB, callback func(proxyID int) bool) {
	stack := []int{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !geom.Overlap(node.aabb, aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(id) {
				return
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// RayCast walks the tree along the segment in input, culling subtrees via
// a separating-axis test against the segment before descending, and calls
// callback for every leaf the segment's AABB might still reach. callback
// returns 0 to terminate the cast, a positive value to become the new
// maxFraction the search shrinks to, or a negative value to ignore that
// leaf and go on.
func (t *DynamicTree) RayCast(input geom.RayCastInput, callback func(input geom.RayCastInput, proxyID int) float64) {
	p1, p2 := input.P1, input.P2
	r := p2.Sub(p1)
	r, _ = r.Normalize()

	v := geom.CrossSV(1.0, r)
	absV := geom.Abs2(v)

	maxFraction := input.MaxFraction

	tEnd := p1.Add(p2.Sub(p1).Mul(maxFraction))
	segmentAABB := geom.AABB{LowerBound: geom.Min2(p1, tEnd), UpperBound: geom.Max2(p1, tEnd)}

	stack := []int{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !geom.Overlap(node.aabb, segmentAABB) {
			continue
		}

		c := node.aabb.Center()
		h := node.aabb.Extents()
		separation := math.Abs(geom.Dot(v, p1.Sub(c))) - geom.Dot(absV, h)
		if separation > 0 {
			continue
		}

		if node.isLeaf() {
			subInput := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}
			value := callback(subInput, id)

			if value == 0 {
				return
			}
			if value > 0 {
				maxFraction = value
				tEnd = p1.Add(p2.Sub(p1).Mul(maxFraction))
				segmentAABB = geom.AABB{LowerBound: geom.Min2(p1, tEnd), UpperBound: geom.Max2(p1, tEnd)}
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// ShiftOrigin translates every stored AABB by -newOrigin, used when a
// simulation recenters its coordinate system to fight floating point error
// accumulation far from the origin.
func (t *DynamicTree) ShiftOrigin(newOrigin geom.Vec2) {
	for i := range t.nodes {
		t.nodes[i].aabb.LowerBound = t.nodes[i].aabb.LowerBound.Sub(newOrigin)
		t.nodes[i].aabb.UpperBound = t.nodes[i].aabb.UpperBound.Sub(newOrigin)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
