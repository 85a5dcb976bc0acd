package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

type contactFlags uint32

const (
	contactTouching contactFlags = 1 << iota
	contactEnabled
	contactFilter
	contactIsland
	contactBulletHit
	contactHasTOI
)

// contact is the World-owned record one broad-phase-surfaced fixture pair
// keeps for as long as their fat AABBs overlap: a manifold, the mixed
// friction/restitution, and enough bookkeeping to tell Step whether the
// pair just started, stopped, or is still touching.
type contact struct {
	generation uint32
	destroyed  bool

	flags contactFlags

	fixtureA, fixtureB       FixtureID
	childIndexA, childIndexB int

	manifold geom.Manifold

	friction     float64
	restitution  float64
	tangentSpeed float64

	toi      float64
	toiCount int

	islandIndex int
}

func (c *contact) isTouching() bool { return c.flags&contactTouching != 0 }
func (c *contact) isEnabled() bool  { return c.flags&contactEnabled != 0 }

// mixFriction and mixRestitution are the teacher's geometric-mean and
// max mixing laws: friction drives toward zero if either surface is
// slick, restitution takes the bouncier of the two.
func mixFriction(a, b float64) float64 { return math.Sqrt(a * b) }
func mixRestitution(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// contactManager owns the contact pool and the fixture-pair dedup table
// the broad phase's addPair callback consults, standing in for the
// teacher's ContactManager + per-body contact-edge lists.
type contactManager struct {
	world     *World
	contacts  []contact
	byPair    map[pairKey]contactID
	listeners Listeners
}

// pairKey identifies one broad-phase pair at the granularity Box2D's
// FixtureProxy works at: a fixture pair alone isn't enough, since a chain
// fixture has one proxy per edge and each edge can be touching a different
// fixture on the other body at once.
type pairKey struct {
	a, b           FixtureID
	childA, childB int
}

func newContactManager(w *World) *contactManager {
	return &contactManager{world: w, byPair: make(map[pairKey]contactID)}
}

func normalizedPairKey(a, b FixtureID, childA, childB int) pairKey {
	if a.index > b.index || (a.index == b.index && a.generation > b.generation) {
		a, b = b, a
		childA, childB = childB, childA
	}
	return pairKey{a: a, b: b, childA: childA, childB: childB}
}

// addPair is the broad phase's UpdatePairs callback: it receives two
// fixture tags and creates a contact the first time they're seen
// together, applying the filter and at-least-one-dynamic rules before
// committing to narrow phase on a later Step.
func (cm *contactManager) addPair(tagA, tagB int) {
	fidA, childA := fixtureIDFromTag(tagA)
	fidB, childB := fixtureIDFromTag(tagB)

	fA, err := cm.world.fixtureRec(fidA)
	if err != nil {
		return
	}
	fB, err := cm.world.fixtureRec(fidB)
	if err != nil {
		return
	}
	if fA.body == fB.body {
		return
	}
	key := normalizedPairKey(fidA, fidB, childA, childB)
	if _, exists := cm.byPair[key]; exists {
		return
	}
	if !cm.world.shouldCollide(fA.body, fB.body) {
		return
	}
	if !fA.filter.ShouldCollide(fB.filter) {
		return
	}
	if cm.listeners.ShouldCollide != nil && !cm.listeners.ShouldCollide(fidA, fidB) {
		return
	}

	c := contact{
		flags:       contactEnabled,
		fixtureA:    key.a,
		fixtureB:    key.b,
		childIndexA: key.childA,
		childIndexB: key.childB,
		friction:    mixFriction(fA.friction, fB.friction),
		restitution: mixRestitution(fA.restitution, fB.restitution),
	}

	idx, gen := cm.world.allocContact(c)
	cid := contactID{index: idx, generation: gen}
	cm.byPair[key] = cid

	bA := &cm.world.bodies[fA.body.index]
	bB := &cm.world.bodies[fB.body.index]
	bA.contacts = append(bA.contacts, cid)
	bB.contacts = append(bB.contacts, cid)
}

func (cm *contactManager) get(cid contactID) (*contact, error) {
	if cid.index < 0 || cid.index >= len(cm.contacts) {
		return nil, newError(OutOfRange, "contact out of range")
	}
	c := &cm.contacts[cid.index]
	if c.destroyed || c.generation != cid.generation {
		return nil, newError(OutOfRange, "contact destroyed")
	}
	return c, nil
}

func (cm *contactManager) destroy(cid contactID) {
	c, err := cm.get(cid)
	if err != nil {
		return
	}
	fA := &cm.world.fixtures[c.fixtureA.index]
	fB := &cm.world.fixtures[c.fixtureB.index]

	if c.manifold.PointCount > 0 && !fA.isSensor && !fB.isSensor {
		cm.world.bodies[fA.body.index].setAwake(true)
		cm.world.bodies[fB.body.index].setAwake(true)
	}

	if cm.listeners.EndContact != nil && c.isTouching() {
		cm.listeners.EndContact(ContactRef{world: cm.world, id: cid})
	}

	delete(cm.byPair, pairKey{a: c.fixtureA, b: c.fixtureB, childA: c.childIndexA, childB: c.childIndexB})
	removeContactFromBody(&cm.world.bodies[fA.body.index], cid)
	removeContactFromBody(&cm.world.bodies[fB.body.index], cid)

	c.destroyed = true
}

func removeContactFromBody(b *body, cid contactID) {
	for i, c := range b.contacts {
		if c == cid {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return
		}
	}
}

// touching returns every live contact referencing fixture id, used by
// DestroyFixture and SetFilterData.
func (cm *contactManager) touching(id FixtureID) []contactID {
	var out []contactID
	for i := range cm.contacts {
		c := &cm.contacts[i]
		if c.destroyed {
			continue
		}
		if c.fixtureA == id || c.fixtureB == id {
			out = append(out, contactID{index: i, generation: c.generation})
		}
	}
	return out
}

func (cm *contactManager) flagFilter(cid contactID) {
	if c, err := cm.get(cid); err == nil {
		c.flags |= contactFilter
	}
}

// collide re-evaluates every contact's narrow-phase manifold and fires
// begin/end/pre-solve listeners, the handle-based counterpart of the
// teacher's B2ContactUpdate loop driven once per Step.
func (cm *contactManager) collide() {
	w := cm.world
	i := 0
	for i < len(cm.contacts) {
		c := &cm.contacts[i]
		i++
		if c.destroyed {
			continue
		}

		fA := &w.fixtures[c.fixtureA.index]
		fB := &w.fixtures[c.fixtureB.index]
		bA := &w.bodies[fA.body.index]
		bB := &w.bodies[fB.body.index]

		cidx := i - 1

		if c.flags&contactFilter != 0 {
			if !fA.filter.ShouldCollide(fB.filter) {
				cm.destroy(contactID{index: cidx, generation: c.generation})
				continue
			}
			if cm.listeners.ShouldCollide != nil && !cm.listeners.ShouldCollide(c.fixtureA, c.fixtureB) {
				cm.destroy(contactID{index: cidx, generation: c.generation})
				continue
			}
			c.flags &^= contactFilter
		}

		activeA := bA.isAwake() && bA.kind != StaticBody
		activeB := bB.isAwake() && bB.kind != StaticBody
		if !activeA && !activeB {
			continue
		}

		proxyA := fA.proxies[c.childIndexA]
		proxyB := fB.proxies[c.childIndexB]
		if !w.broadPhase.TestOverlap(proxyA.proxyID, proxyB.proxyID) {
			cm.destroy(contactID{index: cidx, generation: c.generation})
			continue
		}

		cm.update(c, cidx, bA.xf, bB.xf)
	}
}

func (cm *contactManager) update(c *contact, cidx int, xfA, xfB geom.Transform) {
	w := cm.world
	fA := &w.fixtures[c.fixtureA.index]
	fB := &w.fixtures[c.fixtureB.index]

	oldManifold := c.manifold
	wasTouching := c.isTouching()

	sensor := fA.isSensor || fB.isSensor

	var touching bool
	if sensor {
		shapeA := w.shapeOf(fA.shape)
		shapeB := w.shapeOf(fB.shape)
		touching = shapesOverlap(shapeA, c.childIndexA, xfA, shapeB, c.childIndexB, xfB)
		c.manifold.PointCount = 0
	} else {
		shapeA := w.shapeOf(fA.shape)
		shapeB := w.shapeOf(fB.shape)
		c.manifold = geom.Collide(shapeA, c.childIndexA, xfA, shapeB, c.childIndexB, xfB)
		touching = c.manifold.PointCount > 0

		for i := 0; i < c.manifold.PointCount; i++ {
			mp := &c.manifold.Points[i]
			mp.NormalImpulse = 0
			mp.TangentImpulse = 0
			for j := 0; j < oldManifold.PointCount; j++ {
				if oldManifold.Points[j].ID.Key() == mp.ID.Key() {
					mp.NormalImpulse = oldManifold.Points[j].NormalImpulse
					mp.TangentImpulse = oldManifold.Points[j].TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			w.bodies[fA.body.index].setAwake(true)
			w.bodies[fB.body.index].setAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}

	cid := contactID{index: cidx, generation: c.generation}

	if !wasTouching && touching && cm.listeners.BeginContact != nil {
		cm.listeners.BeginContact(ContactRef{world: w, id: cid})
	}
	if wasTouching && !touching && cm.listeners.EndContact != nil {
		cm.listeners.EndContact(ContactRef{world: w, id: cid})
	}
	if !sensor && touching && cm.listeners.PreSolve != nil {
		cm.listeners.PreSolve(ContactRef{world: w, id: cid}, oldManifold)
	}
}

// shapesOverlap is the cheap GJK-distance overlap test sensors use instead
// of a full manifold, grounded on the teacher's B2TestOverlapShapes.
func shapesOverlap(shapeA geom.Shape, childA int, xfA geom.Transform, shapeB geom.Shape, childB int, xfB geom.Transform) bool {
	var proxyA, proxyB geom.DistanceProxy
	proxyA.SetShape(shapeA, childA)
	proxyB.SetShape(shapeB, childB)

	input := geom.DistanceInput{
		ProxyA:      proxyA,
		ProxyB:      proxyB,
		TransformA:  xfA,
		TransformB:  xfB,
		UseRadii:    true,
	}
	var cache geom.SimplexCache
	output := geom.ComputeDistance(&cache, input)
	return output.Distance < 10*geom.LinearSlop
}

// ContactRef is the read-only view a Listeners callback receives; it
// carries just enough of the World and the contact's index to answer
// queries without exposing the internal contact type.
type ContactRef struct {
	world *World
	id    contactID
}

func (r ContactRef) Fixtures() (FixtureID, FixtureID) {
	c, _ := r.world.contactManager.get(r.id)
	if c == nil {
		return InvalidFixtureID, InvalidFixtureID
	}
	return c.fixtureA, c.fixtureB
}

func (r ContactRef) Manifold() geom.Manifold {
	c, _ := r.world.contactManager.get(r.id)
	if c == nil {
		return geom.Manifold{}
	}
	return c.manifold
}

func (r ContactRef) IsTouching() bool {
	c, _ := r.world.contactManager.get(r.id)
	return c != nil && c.isTouching()
}

func (r ContactRef) SetFriction(f float64) {
	if c, _ := r.world.contactManager.get(r.id); c != nil {
		c.friction = f
	}
}

func (r ContactRef) SetRestitution(rest float64) {
	if c, _ := r.world.contactManager.get(r.id); c != nil {
		c.restitution = rest
	}
}
