package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/broadphase"
	"github.com/seongjinhong-ca/impulse2d/geom"
)

// toiEpsilon mirrors the teacher's b2_epsilon (FLT_EPSILON), used only to
// decide when a found TOI is close enough to 1.0 to call the sweep done.
const toiEpsilon = 1.1920929e-7

// WorldConf seeds NewWorld.
type WorldConf struct {
	AllowSleep        bool
	ContinuousPhysics bool
	SubStepping       bool
	Listeners         Listeners
}

// DefaultWorldConf enables sleeping and continuous physics, matching the
// teacher's B2World defaults, with sub-stepping off (a single Step call
// resolves every TOI event it finds).
func DefaultWorldConf() WorldConf {
	return WorldConf{AllowSleep: true, ContinuousPhysics: true}
}

// World owns every body, fixture, shape, contact and joint a simulation
// uses, addressed by the handle types rather than the teacher's
// pointer-linked lists. All public mutation (CreateBody, DestroyFixture,
// CreateJoint, ...) and the query accessors are methods on *World.
type World struct {
	bodies     []body
	fixtures   []fixture
	shapeSlots []shapeSlot
	joints     []jointRecord

	contactManager *contactManager
	broadPhase     *broadphase.BroadPhase

	locked     bool
	newFixture bool

	allowSleep        bool
	continuousPhysics bool
	subStepping       bool
	stepComplete      bool

	invDt0 float64
}

// NewWorld builds an empty World ready for CreateBody/CreateShape calls.
func NewWorld(conf WorldConf) *World {
	w := &World{
		broadPhase:        broadphase.NewBroadPhase(),
		allowSleep:        conf.AllowSleep,
		continuousPhysics: conf.ContinuousPhysics,
		subStepping:       conf.SubStepping,
		stepComplete:      true,
	}
	w.contactManager = newContactManager(w)
	w.contactManager.listeners = conf.Listeners
	return w
}

// SetListeners replaces the World's callback bundle.
func (w *World) SetListeners(l Listeners) { w.contactManager.listeners = l }

// SetAllowSleeping toggles whether islands are allowed to go to sleep;
// disabling it wakes every body, matching the teacher's SetAllowSleeping.
func (w *World) SetAllowSleeping(allow bool) {
	if w.allowSleep == allow {
		return
	}
	w.allowSleep = allow
	if !allow {
		for i := range w.bodies {
			if !w.bodies[i].destroyed {
				w.bodies[i].setAwake(true)
			}
		}
	}
}

func (w *World) IsLocked() bool { return w.locked }

func (cm *contactManager) findNewContacts() {
	cm.world.broadPhase.UpdatePairs(cm.addPair)
}

// allocBody reuses a destroyed slot if one exists (bumping its
// generation so stale BodyIDs into it fail), otherwise appends.
func (w *World) allocBody(b body) (int, uint32) {
	for i := range w.bodies {
		if w.bodies[i].destroyed {
			gen := w.bodies[i].generation + 1
			b.generation = gen
			b.destroyed = false
			w.bodies[i] = b
			return i, gen
		}
	}
	b.generation = 1
	w.bodies = append(w.bodies, b)
	return len(w.bodies) - 1, 1
}

func (w *World) freeBody(id BodyID) {
	b := &w.bodies[id.index]
	b.destroyed = true
	b.fixtures = nil
	b.joints = nil
	b.contacts = nil
}

func (w *World) allocFixture(f fixture) (int, uint32) {
	for i := range w.fixtures {
		if w.fixtures[i].destroyed {
			gen := w.fixtures[i].generation + 1
			f.generation = gen
			f.destroyed = false
			w.fixtures[i] = f
			return i, gen
		}
	}
	f.generation = 1
	w.fixtures = append(w.fixtures, f)
	return len(w.fixtures) - 1, 1
}

func (w *World) allocJoint(rec jointRecord) (int, uint32) {
	for i := range w.joints {
		if w.joints[i].destroyed {
			gen := w.joints[i].generation + 1
			rec.generation = gen
			rec.destroyed = false
			w.joints[i] = rec
			return i, gen
		}
	}
	rec.generation = 1
	w.joints = append(w.joints, rec)
	return len(w.joints) - 1, 1
}

// allocContact is called from the broad phase's addPair callback, so it
// operates on the contact manager's pool rather than the World's own
// slices.
func (w *World) allocContact(c contact) (int, uint32) {
	cs := w.contactManager.contacts
	for i := range cs {
		if cs[i].destroyed {
			gen := cs[i].generation + 1
			c.generation = gen
			c.destroyed = false
			cs[i] = c
			return i, gen
		}
	}
	c.generation = 1
	w.contactManager.contacts = append(w.contactManager.contacts, c)
	return len(w.contactManager.contacts) - 1, 1
}

// Step advances the simulation by conf.Dt: narrow-phase collision update,
// island assembly and the sequential-impulse solve, then continuous
// collision sub-stepping if any fast body tunneled through something this
// step. It mirrors the teacher's B2World.Step top to bottom.
func (w *World) Step(conf StepConf) (StepStats, error) {
	if w.locked {
		return StepStats{}, newError(WrongState, "Step called while world is already stepping")
	}

	if w.newFixture {
		w.contactManager.findNewContacts()
		w.newFixture = false
	}

	w.locked = true
	defer func() { w.locked = false }()

	step := stepTimeInfo{
		dt:                 conf.Dt,
		dtRatio:            w.invDt0 * conf.Dt,
		velocityIterations: conf.VelocityIterations,
		positionIterations: conf.PositionIterations,
		warmStarting:       conf.WarmStarting,
		blockSolve:         conf.BlockSolve,
		velocityThreshold:  conf.VelocityThreshold,
	}
	if conf.Dt > 0 {
		step.invDt = 1.0 / conf.Dt
	}

	var stats StepStats

	w.contactManager.collide()

	if w.stepComplete && step.dt > 0 {
		w.solveIslands(conf, step, &stats)
	}

	if w.continuousPhysics && step.dt > 0 {
		w.solveTOI(conf, step, &stats)
	}

	if step.dt > 0 {
		w.invDt0 = step.invDt
	}

	for i := range w.bodies {
		if !w.bodies[i].destroyed {
			stats.BodyCount++
		}
	}
	for i := range w.joints {
		if !w.joints[i].destroyed {
			stats.JointCount++
		}
	}
	for i := range w.contactManager.contacts {
		c := &w.contactManager.contacts[i]
		if c.destroyed {
			continue
		}
		stats.ContactCount++
		if c.isTouching() {
			stats.TouchingContacts++
		}
	}

	return stats, nil
}

// solveIslands is the non-TOI half of Step: flood-fill every awake,
// non-static, connected component of the body graph into an island and
// run island.solve over it, then look for new broad-phase pairs among
// the bodies that moved, the counterpart of the teacher's B2World.Solve.
func (w *World) solveIslands(conf StepConf, step stepTimeInfo, stats *StepStats) {
	for i := range w.bodies {
		w.bodies[i].flags &^= flagIsland
	}
	for i := range w.contactManager.contacts {
		w.contactManager.contacts[i].flags &^= contactIsland
	}
	processedJoint := make([]bool, len(w.joints))

	stack := make([]BodyID, 0, len(w.bodies))
	var is island

	for seedIdx := range w.bodies {
		seed := &w.bodies[seedIdx]
		if seed.destroyed || seed.flags&flagIsland != 0 {
			continue
		}
		if !seed.isAwake() || !seed.isActive() {
			continue
		}
		if seed.kind == StaticBody {
			continue
		}

		is.clear()
		stack = stack[:0]
		seedID := BodyID{index: seedIdx, generation: seed.generation}
		stack = append(stack, seedID)
		seed.flags |= flagIsland

		for len(stack) > 0 {
			bid := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b := &w.bodies[bid.index]

			is.bodies = append(is.bodies, bid)
			b.flags |= flagAwake

			if b.kind == StaticBody {
				continue
			}

			for _, cid := range b.contacts {
				c, err := w.contactManager.get(cid)
				if err != nil || c.flags&contactIsland != 0 {
					continue
				}
				if !c.isEnabled() || !c.isTouching() {
					continue
				}
				fA := &w.fixtures[c.fixtureA.index]
				fB := &w.fixtures[c.fixtureB.index]
				if fA.isSensor || fB.isSensor {
					continue
				}

				is.contacts = append(is.contacts, c)
				is.contactIDs = append(is.contactIDs, cid)
				c.flags |= contactIsland

				other := contactOtherBody(c, w, bid)
				otherB := &w.bodies[other.index]
				if otherB.flags&flagIsland != 0 {
					continue
				}
				stack = append(stack, other)
				otherB.flags |= flagIsland
			}

			for _, je := range b.joints {
				jrec, err := w.jointRec(je.joint)
				if err != nil || processedJoint[je.joint.index] {
					continue
				}
				otherB := &w.bodies[je.other.index]
				if !otherB.isActive() {
					continue
				}

				is.joints = append(is.joints, jrec.impl)
				processedJoint[je.joint.index] = true

				if otherB.flags&flagIsland != 0 {
					continue
				}
				stack = append(stack, je.other)
				otherB.flags |= flagIsland
			}
		}

		stats.DegenerateContacts += is.solve(w, conf, step, w.allowSleep)
		stats.IslandCount++

		for _, bid := range is.bodies {
			b := &w.bodies[bid.index]
			if b.kind == StaticBody {
				b.flags &^= flagIsland
			}
		}
	}

	for i := range w.bodies {
		b := &w.bodies[i]
		if b.destroyed || b.flags&flagIsland == 0 || b.kind == StaticBody {
			continue
		}
		w.synchronizeFixtures(BodyID{index: i, generation: b.generation})
	}

	w.contactManager.findNewContacts()
}

func contactOtherBody(c *contact, w *World, bid BodyID) BodyID {
	fA := &w.fixtures[c.fixtureA.index]
	fB := &w.fixtures[c.fixtureB.index]
	if fA.body == bid {
		return fB.body
	}
	return fA.body
}

// solveTOI finds the earliest time-of-impact event among all enabled
// contacts, advances just the two implicated bodies (plus whatever else
// their own contacts tentatively drag along) to that fraction, solves a
// small island at the sub-step, and repeats until no contact reports a
// TOI before t=1, the counterpart of the teacher's B2World.SolveTOI.
func (w *World) solveTOI(conf StepConf, step stepTimeInfo, stats *StepStats) {
	if w.stepComplete {
		for i := range w.bodies {
			w.bodies[i].flags &^= flagIsland
			w.bodies[i].sweep.Alpha0 = 0
		}
		for i := range w.contactManager.contacts {
			c := &w.contactManager.contacts[i]
			c.flags &^= contactIsland | contactHasTOI
			c.toiCount = 0
			c.toi = 1.0
		}
	}

	for {
		minAlpha := 1.0
		minIdx := -1

		for i := range w.contactManager.contacts {
			c := &w.contactManager.contacts[i]
			if c.destroyed || !c.isEnabled() {
				continue
			}
			if c.toiCount > conf.MaxSubSteps {
				continue
			}

			alpha := 1.0
			if c.flags&contactHasTOI != 0 {
				alpha = c.toi
			} else {
				fA := &w.fixtures[c.fixtureA.index]
				fB := &w.fixtures[c.fixtureB.index]
				if fA.isSensor || fB.isSensor {
					continue
				}

				bA := &w.bodies[fA.body.index]
				bB := &w.bodies[fB.body.index]

				activeA := bA.isAwake() && bA.kind != StaticBody
				activeB := bB.isAwake() && bB.kind != StaticBody
				if !activeA && !activeB {
					continue
				}

				collideA := bA.isBullet() || bA.kind != DynamicBody
				collideB := bB.isBullet() || bB.kind != DynamicBody
				if !collideA && !collideB {
					continue
				}

				alpha0 := bA.sweep.Alpha0
				if bA.sweep.Alpha0 < bB.sweep.Alpha0 {
					alpha0 = bB.sweep.Alpha0
					bA.sweep.Advance(alpha0)
				} else if bB.sweep.Alpha0 < bA.sweep.Alpha0 {
					alpha0 = bA.sweep.Alpha0
					bB.sweep.Advance(alpha0)
				}

				shapeA := w.shapeOf(fA.shape)
				shapeB := w.shapeOf(fB.shape)
				var proxyA, proxyB geom.DistanceProxy
				proxyA.SetShape(shapeA, c.childIndexA)
				proxyB.SetShape(shapeB, c.childIndexB)

				toiInput := geom.TOIInput{
					ProxyA: proxyA,
					ProxyB: proxyB,
					SweepA: bA.sweep,
					SweepB: bB.sweep,
					TMax:   1.0,
				}
				output := geom.TimeOfImpact(toiInput)

				if output.State == geom.TOITouching {
					alpha = math.Min(alpha0+(1.0-alpha0)*output.T, 1.0)
				} else {
					alpha = 1.0
				}

				c.toi = alpha
				c.flags |= contactHasTOI
			}

			if alpha < minAlpha {
				minAlpha = alpha
				minIdx = i
			}
		}

		if minIdx < 0 || minAlpha > 1.0-10.0*toiEpsilon {
			w.stepComplete = true
			return
		}

		minC := &w.contactManager.contacts[minIdx]
		fA := &w.fixtures[minC.fixtureA.index]
		fB := &w.fixtures[minC.fixtureB.index]
		bAID, bBID := fA.body, fB.body
		bA := &w.bodies[bAID.index]
		bB := &w.bodies[bBID.index]

		backupA, backupB := bA.sweep, bB.sweep

		bA.advance(minAlpha)
		bB.advance(minAlpha)

		w.contactManager.update(minC, minIdx, bA.xf, bB.xf)
		minC.flags &^= contactHasTOI
		minC.toiCount++

		if !minC.isEnabled() || !minC.isTouching() {
			minC.flags &^= contactEnabled
			bA.sweep = backupA
			bB.sweep = backupB
			bA.synchronizeTransform()
			bB.synchronizeTransform()
			continue
		}

		bA.setAwake(true)
		bB.setAwake(true)

		var is island
		minCID := contactID{index: minIdx, generation: minC.generation}
		is.bodies = append(is.bodies, bAID, bBID)
		is.contacts = append(is.contacts, minC)
		is.contactIDs = append(is.contactIDs, minCID)

		bA.flags |= flagIsland
		bB.flags |= flagIsland
		minC.flags |= contactIsland

		for _, seed := range [2]BodyID{bAID, bBID} {
			b := &w.bodies[seed.index]
			if b.kind != DynamicBody {
				continue
			}
			for _, cid := range b.contacts {
				c, err := w.contactManager.get(cid)
				if err != nil || c.flags&contactIsland != 0 {
					continue
				}
				other := contactOtherBody(c, w, seed)
				otherB := &w.bodies[other.index]
				if otherB.kind == DynamicBody && !b.isBullet() && !otherB.isBullet() {
					continue
				}
				fca := &w.fixtures[c.fixtureA.index]
				fcb := &w.fixtures[c.fixtureB.index]
				if fca.isSensor || fcb.isSensor {
					continue
				}

				backup := otherB.sweep
				if otherB.flags&flagIsland == 0 {
					otherB.advance(minAlpha)
				}

				xfA := w.bodies[fca.body.index].xf
				xfB := w.bodies[fcb.body.index].xf
				w.contactManager.update(c, cid.index, xfA, xfB)
				if !c.isEnabled() || !c.isTouching() {
					otherB.sweep = backup
					otherB.synchronizeTransform()
					continue
				}

				c.flags |= contactIsland
				is.contacts = append(is.contacts, c)
				is.contactIDs = append(is.contactIDs, cid)

				if otherB.flags&flagIsland != 0 {
					continue
				}
				otherB.flags |= flagIsland
				if otherB.kind != StaticBody {
					otherB.setAwake(true)
				}
				is.bodies = append(is.bodies, other)
			}
		}

		subStep := stepTimeInfo{
			dt:                 (1.0 - minAlpha) * step.dt,
			dtRatio:            1.0,
			velocityIterations: step.velocityIterations,
			positionIterations: 20,
			warmStarting:       false,
			blockSolve:         step.blockSolve,
		}
		if subStep.dt > 0 {
			subStep.invDt = 1.0 / subStep.dt
		}

		toiIndexA, toiIndexB := -1, -1
		for i, bid := range is.bodies {
			if bid == bAID {
				toiIndexA = i
			}
			if bid == bBID {
				toiIndexB = i
			}
		}

		is.solveTOI(w, conf, subStep, toiIndexA, toiIndexB)
		stats.TOISubSteps++

		for _, bid := range is.bodies {
			b := &w.bodies[bid.index]
			b.flags &^= flagIsland
			if b.kind != DynamicBody {
				continue
			}
			w.synchronizeFixtures(bid)
			for _, cid := range b.contacts {
				if c, err := w.contactManager.get(cid); err == nil {
					c.flags &^= contactHasTOI | contactIsland
				}
			}
		}

		w.contactManager.findNewContacts()

		if w.subStepping {
			w.stepComplete = false
			return
		}
	}
}

// QueryAABB reports every fixture whose fat broad-phase AABB overlaps
// aabb; callback returning false stops the query early.
func (w *World) QueryAABB(aabb geom.AABB, callback func(FixtureID) bool) {
	w.broadPhase.Query(aabb, func(proxyID int) bool {
		tag := w.broadPhase.GetUserData(proxyID)
		fid, _ := fixtureIDFromTag(tag)
		return callback(fid)
	})
}

// RayCast casts a segment from p1 to p2 against every fixture the broad
// phase's tree overlaps, narrow-casting each one and forwarding hits to
// callback. callback's return value follows the teacher's clip contract:
// -1 ignores this fixture, 0 terminates the cast, a fraction in (0,1]
// clips the segment to that point, and 1 continues unclipped.
func (w *World) RayCast(p1, p2 geom.Vec2, callback func(fid FixtureID, point, normal geom.Vec2, fraction float64) float64) {
	input := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: 1.0}
	w.broadPhase.RayCast(input, func(rcInput geom.RayCastInput, proxyID int) float64 {
		tag := w.broadPhase.GetUserData(proxyID)
		fid, childIndex := fixtureIDFromTag(tag)
		f := &w.fixtures[fid.index]
		b := &w.bodies[f.body.index]
		shape := w.shapeOf(f.shape)

		output, hit := shape.RayCast(rcInput, b.xf, childIndex)
		if !hit {
			return -1
		}
		point := rcInput.P1.Add(rcInput.P2.Sub(rcInput.P1).Mul(output.Fraction))
		return callback(fid, point, output.Normal, output.Fraction)
	})
}

// ClearForces zeroes every body's accumulated force and torque, the way a
// caller driving Step manually would between applying forces and the
// next call if they don't want forces to persist across steps.
func (w *World) ClearForces() {
	for i := range w.bodies {
		w.bodies[i].force = geom.Zero2
		w.bodies[i].torque = 0
	}
}

// ShiftOrigin recenters every body, proxy and broad-phase node by -origin,
// used by a caller tracking a large or open world to keep coordinates
// away from floating-point precision loss far from the origin.
func (w *World) ShiftOrigin(origin geom.Vec2) {
	for i := range w.bodies {
		b := &w.bodies[i]
		b.xf.P = b.xf.P.Sub(origin)
		b.sweep.C0 = b.sweep.C0.Sub(origin)
		b.sweep.C = b.sweep.C.Sub(origin)
	}
	w.broadPhase.ShiftOrigin(origin)
}

// BodyCount, JointCount and ContactCount report live pool occupancy
// without requiring a Step to have run.
func (w *World) BodyCount() int {
	n := 0
	for i := range w.bodies {
		if !w.bodies[i].destroyed {
			n++
		}
	}
	return n
}

func (w *World) JointCount() int {
	n := 0
	for i := range w.joints {
		if !w.joints[i].destroyed {
			n++
		}
	}
	return n
}

func (w *World) ContactCount() int {
	n := 0
	for i := range w.contactManager.contacts {
		if !w.contactManager.contacts[i].destroyed {
			n++
		}
	}
	return n
}
