package broadphase

import (
	"sort"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

const nullProxy = -1

// Pair is an ordered (proxyIDA <= proxyIDB) candidate contact surfaced by
// UpdatePairs.
type Pair struct {
	ProxyIDA, ProxyIDB int
}

func pairLess(a, b Pair) bool {
	if a.ProxyIDA != b.ProxyIDA {
		return a.ProxyIDA < b.ProxyIDA
	}
	return a.ProxyIDB < b.ProxyIDB
}

// BroadPhase wraps a DynamicTree with the move-buffering and pair
// de-duplication the world's contact manager needs: proxies that moved
// since the last UpdatePairs are re-queried, and a proxy can only form one
// new-pair notification per call even if several of its fattened AABBs
// overlap the same neighbor.
type BroadPhase struct {
	tree *DynamicTree

	proxyCount int

	moveBuffer []int

	pairBuffer   []Pair
	queryProxyID int
}

func NewBroadPhase() *BroadPhase {
	return &BroadPhase{tree: NewDynamicTree()}
}

func (bp *BroadPhase) GetUserData(proxyID int) int   { return bp.tree.GetUserData(proxyID) }
func (bp *BroadPhase) GetFatAABB(proxyID int) geom.AABB { return bp.tree.GetFatAABB(proxyID) }
func (bp *BroadPhase) GetProxyCount() int            { return bp.proxyCount }
func (bp *BroadPhase) GetTreeHeight() int            { return bp.tree.GetHeight() }
func (bp *BroadPhase) GetTreeQuality() float64       { return bp.tree.GetAreaRatio() }

// TestOverlap reports whether two proxies' fattened AABBs currently
// overlap, cheaper than re-running narrow phase just to find out they
// don't.
func (bp *BroadPhase) TestOverlap(proxyIDA, proxyIDB int) bool {
	return geom.Overlap(bp.tree.GetFatAABB(proxyIDA), bp.tree.GetFatAABB(proxyIDB))
}

func (bp *BroadPhase) CreateProxy(aabb geom.AABB, userData int) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

func (bp *BroadPhase) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	bp.tree.DestroyProxy(proxyID)
}

func (bp *BroadPhase) MoveProxy(proxyID int, aabb geom.AABB, displacement geom.Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces proxyID to be re-queried on the next UpdatePairs even
// though its AABB hasn't moved, used when a fixture's filter changes.
func (bp *BroadPhase) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

func (bp *BroadPhase) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = nullProxy
		}
	}
}

// UpdatePairs re-queries every proxy buffered as moved since the last call,
// de-duplicates the resulting candidate pairs, and invokes addPair once per
// distinct pair with the two proxies' tagged user data.
func (bp *BroadPhase) UpdatePairs(addPair func(userDataA, userDataB int)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, proxyID := range bp.moveBuffer {
		if proxyID == nullProxy {
			continue
		}
		bp.queryProxyID = proxyID
		fatAABB := bp.tree.GetFatAABB(proxyID)
		bp.tree.Query(fatAABB, bp.queryCallback)
	}

	bp.moveBuffer = bp.moveBuffer[:0]

	sort.Slice(bp.pairBuffer, func(i, j int) bool { return pairLess(bp.pairBuffer[i], bp.pairBuffer[j]) })

	i := 0
	for i < len(bp.pairBuffer) {
		primary := bp.pairBuffer[i]
		addPair(bp.tree.GetUserData(primary.ProxyIDA), bp.tree.GetUserData(primary.ProxyIDB))
		i++
		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == primary {
			i++
		}
	}
}

func (bp *BroadPhase) queryCallback(proxyID int) bool {
	if proxyID == bp.queryProxyID {
		return true
	}
	a, b := proxyID, bp.queryProxyID
	if a > b {
		a, b = b, a
	}
	bp.pairBuffer = append(bp.pairBuffer, Pair{ProxyIDA: a, ProxyIDB: b})
	return true
}

func (bp *BroadPhase) Query(aabb geom.AABB, callback func(proxyID int) bool) {
	bp.tree.Query(aabb, callback)
}

func (bp *BroadPhase) RayCast(input geom.RayCastInput, callback func(input geom.RayCastInput, proxyID int) float64) {
	bp.tree.RayCast(input, callback)
}

func (bp *BroadPhase) ShiftOrigin(newOrigin geom.Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}
