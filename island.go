package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// island is one connected component of awake, non-static bodies plus the
// contacts and joints linking them, assembled fresh by Step's flood fill
// each pass. It borrows scratch slices from the World rather than
// allocating per call, since a typical scene rebuilds a handful of
// islands every step.
type island struct {
	bodies   []BodyID
	contacts []*contact
	// contactIDs tracks the handles parallel to contacts, since the
	// velocity solve writes corrected impulses back through the World.
	contactIDs []contactID
	joints     []jointImpl
}

func (is *island) clear() {
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.contactIDs = is.contactIDs[:0]
	is.joints = is.joints[:0]
}

// solve runs one full velocity+position solve over the island's bodies,
// the handle-based counterpart of the teacher's B2Island.Solve: integrate
// velocities under gravity and damping, warm-start and iterate the
// contact/joint velocity constraints, integrate positions, iterate the
// position-correction pass, then copy the corrected state back into the
// World's bodies and apply the sleep heuristic.
func (is *island) solve(w *World, conf StepConf, step stepTimeInfo, allowSleep bool) int {
	n := len(is.bodies)
	positions := make([]solverPosition, n)
	velocities := make([]solverVelocity, n)

	for i, bid := range is.bodies {
		b := &w.bodies[bid.index]
		b.islandIndex = i
		positions[i] = solverPosition{c: b.sweep.C, a: b.sweep.A}
		velocities[i] = solverVelocity{v: b.linearVelocity, w: b.angularVelocity}

		v := b.linearVelocity
		omega := b.angularVelocity

		if b.kind == DynamicBody {
			v = v.Add(conf.Gravity.Add(b.force.Mul(b.invMass)).Mul(step.dt * b.gravityScale))
			omega += step.dt * b.invI * b.torque

			v = v.Mul(1.0 / (1.0 + step.dt*b.linearDamping))
			omega *= 1.0 / (1.0 + step.dt*b.angularDamping)
		}

		velocities[i] = solverVelocity{v: v, w: omega}
	}

	cs := newContactSolver(step, is.contacts, positions, velocities, w)

	sd := jointSolverData{step: step, positions: positions, velocities: velocities}
	for _, j := range is.joints {
		j.initVelocityConstraints(w, sd)
	}

	cs.initializeVelocityConstraints()
	if step.warmStarting {
		cs.warmStart()
	}

	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range is.joints {
			j.solveVelocityConstraints(w, sd)
		}
		cs.solveVelocityConstraints()
	}

	cs.storeImpulses()

	for i := range is.bodies {
		c, a := positions[i].c, positions[i].a
		v, omega := velocities[i].v, velocities[i].w

		translation := v.Mul(step.dt)
		if geom.Dot(translation, translation) > conf.MaxTranslation*conf.MaxTranslation {
			ratio := conf.MaxTranslation / translation.Length()
			v = v.Mul(ratio)
		}

		rotation := step.dt * omega
		if rotation*rotation > conf.MaxRotation*conf.MaxRotation {
			ratio := conf.MaxRotation / math.Abs(rotation)
			omega *= ratio
		}

		c = c.Add(v.Mul(step.dt))
		a += step.dt * omega

		positions[i] = solverPosition{c, a}
		velocities[i] = solverVelocity{v, omega}
	}

	for i := 0; i < step.positionIterations; i++ {
		contactsOK := cs.solvePositionConstraints(conf)

		jointsOK := true
		for _, j := range is.joints {
			if !j.solvePositionConstraints(w, sd) {
				jointsOK = false
			}
		}

		if contactsOK && jointsOK {
			break
		}
	}

	minSleepTime := math.MaxFloat64

	for i, bid := range is.bodies {
		b := &w.bodies[bid.index]
		b.sweep.C = positions[i].c
		b.sweep.A = positions[i].a
		b.linearVelocity = velocities[i].v
		b.angularVelocity = velocities[i].w
		b.synchronizeTransform()

		if b.kind == StaticBody {
			continue
		}

		if !b.sleepingAllowed() || !allowSleepBody(conf, b) {
			b.sleepTime = 0
			minSleepTime = 0
		} else {
			b.sleepTime += step.dt
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if allowSleep && minSleepTime >= geom.TimeToSleep {
		for _, bid := range is.bodies {
			w.bodies[bid.index].setAwake(false)
		}
	}

	is.report(w)
	return cs.degenerateCount
}

// allowSleepBody reports whether a body's current velocity is slow
// enough to accumulate sleep time, against squared tolerances the way
// the teacher checks linTolSqr/angTolSqr.
func allowSleepBody(conf StepConf, b *body) bool {
	if b.isFixedRotation() {
		return geom.Dot(b.linearVelocity, b.linearVelocity) < geom.LinearSleepTolerance*geom.LinearSleepTolerance
	}
	linOK := geom.Dot(b.linearVelocity, b.linearVelocity) < geom.LinearSleepTolerance*geom.LinearSleepTolerance
	angOK := b.angularVelocity*b.angularVelocity < geom.AngularSleepTolerance*geom.AngularSleepTolerance
	return linOK && angOK
}

// report dispatches PostSolve for every touching, solid contact in the
// island, carrying the per-point impulses the velocity solve just
// committed, the counterpart of the teacher's B2Island.Report.
func (is *island) report(w *World) {
	if w.contactManager.listeners.PostSolve == nil {
		return
	}
	for i, c := range is.contacts {
		if !c.isTouching() {
			continue
		}
		var impulse ContactImpulse
		impulse.Count = c.manifold.PointCount
		for j := 0; j < c.manifold.PointCount; j++ {
			impulse.NormalImpulses[j] = c.manifold.Points[j].NormalImpulse
			impulse.TangentImpulses[j] = c.manifold.Points[j].TangentImpulse
		}
		w.contactManager.listeners.PostSolve(ContactRef{world: w, id: is.contactIDs[i]}, impulse)
	}
}

// solveTOI is the reduced variant SolveTOI runs on the two-body,
// single-contact island a TOI event builds: no gravity/damping
// integration, no warm starting, and only the two TOI-implicated bodies
// carry nonzero effective mass in the position pass. It also performs
// the "leap of faith": only the two TOI bodies' sweep.C0/A0 are advanced
// to match their just-solved positions, since every other body in the
// island was merely given a tentative, possibly-discarded nudge.
func (is *island) solveTOI(w *World, conf StepConf, step stepTimeInfo, toiIndexA, toiIndexB int) {
	n := len(is.bodies)
	positions := make([]solverPosition, n)
	velocities := make([]solverVelocity, n)

	for i, bid := range is.bodies {
		b := &w.bodies[bid.index]
		b.islandIndex = i
		positions[i] = solverPosition{c: b.sweep.C, a: b.sweep.A}
		velocities[i] = solverVelocity{v: b.linearVelocity, w: b.angularVelocity}
	}

	cs := newContactSolver(step, is.contacts, positions, velocities, w)

	for i := 0; i < step.positionIterations; i++ {
		if cs.solveTOIPositionConstraints(conf, toiIndexA, toiIndexB) {
			break
		}
	}

	for i, bid := range is.bodies {
		b := &w.bodies[bid.index]
		if i == toiIndexA || i == toiIndexB {
			b.sweep.C0 = positions[i].c
			b.sweep.A0 = positions[i].a
		}
	}

	cs.initializeVelocityConstraints()

	for i := 0; i < step.velocityIterations; i++ {
		cs.solveVelocityConstraints()
	}

	for i := range is.bodies {
		c, a := positions[i].c, positions[i].a
		v, omega := velocities[i].v, velocities[i].w

		translation := v.Mul(step.dt)
		if geom.Dot(translation, translation) > conf.MaxTranslation*conf.MaxTranslation {
			ratio := conf.MaxTranslation / translation.Length()
			v = v.Mul(ratio)
		}

		rotation := step.dt * omega
		if rotation*rotation > conf.MaxRotation*conf.MaxRotation {
			ratio := conf.MaxRotation / math.Abs(rotation)
			omega *= ratio
		}

		c = c.Add(v.Mul(step.dt))
		a += step.dt * omega

		positions[i] = solverPosition{c, a}
		velocities[i] = solverVelocity{v, omega}
	}

	for i, bid := range is.bodies {
		b := &w.bodies[bid.index]
		b.sweep.C = positions[i].c
		b.sweep.A = positions[i].a
		b.linearVelocity = velocities[i].v
		b.angularVelocity = velocities[i].w
		b.synchronizeTransform()
	}
}
