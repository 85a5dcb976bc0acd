package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// BodyType is the body's role in the solver: static bodies never move,
// kinematic bodies move only by an externally set velocity, and dynamic
// bodies are integrated and collided against everything.
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

type bodyFlags uint32

const (
	flagIsland bodyFlags = 1 << iota
	flagAwake
	flagAutoSleep
	flagBullet
	flagFixedRotation
	flagActive
	flagTOI
)

// BodyConf seeds CreateBody; it can safely be reused across many calls.
type BodyConf struct {
	Type            BodyType
	Position        geom.Vec2
	Angle           float64
	LinearVelocity  geom.Vec2
	AngularVelocity float64
	LinearDamping   float64
	AngularDamping  float64
	AllowSleep      bool
	Awake           bool
	FixedRotation   bool
	Bullet          bool
	Active          bool
	GravityScale    float64
	UserData        interface{}
}

// DefaultBodyConf returns a static, awake, sleep-allowed body at the
// origin, the teacher's B2BodyDef defaults.
func DefaultBodyConf() BodyConf {
	return BodyConf{
		Type:         StaticBody,
		AllowSleep:   true,
		Awake:        true,
		Active:       true,
		GravityScale: 1.0,
	}
}

// body is the World-owned record a BodyID addresses. Fields mirror the
// teacher's B2Body, but the fixture/joint/contact lists become handle
// slices instead of intrusive linked lists, since nothing here needs
// O(1) mid-list removal by pointer identity.
type body struct {
	generation uint32
	destroyed  bool

	kind  BodyType
	flags bodyFlags

	islandIndex int

	xf    geom.Transform
	sweep geom.Sweep

	linearVelocity  geom.Vec2
	angularVelocity float64

	force  geom.Vec2
	torque float64

	fixtures []FixtureID
	joints   []jointEdge
	contacts []contactID

	mass, invMass float64
	I, invI       float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	userData interface{}
}

type jointEdge struct {
	joint JointID
	other BodyID
}

func (b *body) isAwake() bool         { return b.flags&flagAwake != 0 }
func (b *body) isActive() bool        { return b.flags&flagActive != 0 }
func (b *body) isBullet() bool        { return b.flags&flagBullet != 0 }
func (b *body) isFixedRotation() bool { return b.flags&flagFixedRotation != 0 }
func (b *body) sleepingAllowed() bool { return b.flags&flagAutoSleep != 0 }

func (b *body) setAwake(awake bool) {
	if awake {
		b.flags |= flagAwake
		b.sleepTime = 0
	} else {
		b.flags &^= flagAwake
		b.sleepTime = 0
		b.linearVelocity = geom.Zero2
		b.angularVelocity = 0
		b.force = geom.Zero2
		b.torque = 0
	}
}

// synchronizeTransform recomputes the body-origin transform from the
// sweep's current center-of-mass pose, the way every velocity/position
// solver iteration leaves the sweep ahead of the cached transform.
func (b *body) synchronizeTransform() {
	b.xf.Q = geom.RotFromAngle(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(geom.MulRotVec2(b.xf.Q, b.sweep.LocalCenter))
}

// advance moves the body to the TOI fraction alpha without touching the
// broad phase: it folds the sweep's start pose forward to alpha, then
// snaps the end pose back to match it, since a TOI sub-step always
// begins from the safe time it just found.
func (b *body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.synchronizeTransform()
}

// CreateBody allocates a new body from conf and returns its handle. Fails
// with WrongState if the world is mid-Step.
func (w *World) CreateBody(conf BodyConf) (BodyID, error) {
	if w.locked {
		return InvalidBodyID, newError(WrongState, "CreateBody called while world is locked")
	}
	if !conf.Position.IsValid() || !geom.IsValid(conf.Angle) {
		return InvalidBodyID, newError(InvalidArgument, "body position/angle invalid")
	}

	b := body{
		kind:           conf.Type,
		linearVelocity: conf.LinearVelocity,
		angularVelocity: conf.AngularVelocity,
		linearDamping:  conf.LinearDamping,
		angularDamping: conf.AngularDamping,
		gravityScale:   conf.GravityScale,
		userData:       conf.UserData,
	}
	if conf.Bullet {
		b.flags |= flagBullet
	}
	if conf.FixedRotation {
		b.flags |= flagFixedRotation
	}
	if conf.AllowSleep {
		b.flags |= flagAutoSleep
	}
	if conf.Awake {
		b.flags |= flagAwake
	}
	if conf.Active {
		b.flags |= flagActive
	}

	b.xf = geom.NewTransform(conf.Position, conf.Angle)
	b.sweep = geom.Sweep{C0: conf.Position, C: conf.Position, A0: conf.Angle, A: conf.Angle}

	if b.kind == DynamicBody {
		b.mass, b.invMass = 1.0, 1.0
	}

	idx, gen := w.allocBody(b)
	return BodyID{index: idx, generation: gen}, nil
}

// DestroyBody removes a body and every fixture, joint and contact attached
// to it.
func (w *World) DestroyBody(id BodyID) error {
	if w.locked {
		return newError(WrongState, "DestroyBody called while world is locked")
	}
	b, err := w.body(id)
	if err != nil {
		return err
	}

	l := w.contactManager.listeners
	for _, je := range append([]jointEdge{}, b.joints...) {
		if l.DestroyJoint != nil {
			l.DestroyJoint(je.joint)
		}
		w.DestroyJoint(je.joint)
	}
	for _, fid := range append([]FixtureID{}, b.fixtures...) {
		if l.DestroyFixture != nil {
			l.DestroyFixture(fid)
		}
		w.destroyFixtureInternal(fid)
	}
	for _, cid := range append([]contactID{}, b.contacts...) {
		w.contactManager.destroy(cid)
	}

	w.freeBody(id)
	return nil
}

func (w *World) body(id BodyID) (*body, error) {
	if id.index < 0 || id.index >= len(w.bodies) {
		return nil, newError(OutOfRange, "body %v out of range", id)
	}
	rec := &w.bodies[id.index]
	if rec.destroyed || rec.generation != id.generation {
		return nil, newError(OutOfRange, "body %v destroyed", id)
	}
	return rec, nil
}

// BodyType reports a live body's kind.
func (w *World) BodyType(id BodyID) (BodyType, error) {
	b, err := w.body(id)
	if err != nil {
		return 0, err
	}
	return b.kind, nil
}

// SetBodyType changes a body's role, resetting its mass data and waking
// it, per the teacher's SetType.
func (w *World) SetBodyType(id BodyID, kind BodyType) error {
	if w.locked {
		return newError(WrongState, "SetBodyType called while world is locked")
	}
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind == kind {
		return nil
	}
	b.kind = kind
	w.resetMassData(id)

	if kind == StaticBody {
		b.linearVelocity = geom.Zero2
		b.angularVelocity = 0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		w.synchronizeFixtures(id)
	}
	b.setAwake(true)
	b.force, b.torque = geom.Zero2, 0

	for _, cid := range append([]contactID{}, b.contacts...) {
		w.contactManager.destroy(cid)
	}

	for _, fid := range b.fixtures {
		f := &w.fixtures[fid.index]
		for i := range f.proxies {
			w.broadPhase.TouchProxy(f.proxies[i].proxyID)
		}
	}
	return nil
}

func (w *World) Transform(id BodyID) (geom.Transform, error) {
	b, err := w.body(id)
	if err != nil {
		return geom.Transform{}, err
	}
	return b.xf, nil
}

func (w *World) Position(id BodyID) (geom.Vec2, error) {
	b, err := w.body(id)
	if err != nil {
		return geom.Zero2, err
	}
	return b.xf.P, nil
}

func (w *World) Angle(id BodyID) (float64, error) {
	b, err := w.body(id)
	if err != nil {
		return 0, err
	}
	return b.sweep.A, nil
}

func (w *World) WorldCenter(id BodyID) (geom.Vec2, error) {
	b, err := w.body(id)
	if err != nil {
		return geom.Zero2, err
	}
	return b.sweep.C, nil
}

// SetTransform teleports a body, resynchronizing every attached fixture's
// broad-phase proxy in place (no swept AABB, since this isn't integration).
func (w *World) SetTransform(id BodyID, position geom.Vec2, angle float64) error {
	if w.locked {
		return newError(WrongState, "SetTransform called while world is locked")
	}
	b, err := w.body(id)
	if err != nil {
		return err
	}

	b.xf = geom.NewTransform(position, angle)
	b.sweep.C = geom.Apply(b.xf, b.sweep.LocalCenter)
	b.sweep.A = angle
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	for _, fid := range b.fixtures {
		w.synchronizeFixture(fid, b.xf, b.xf)
	}
	return nil
}

func (w *World) LinearVelocity(id BodyID) (geom.Vec2, error) {
	b, err := w.body(id)
	if err != nil {
		return geom.Zero2, err
	}
	return b.linearVelocity, nil
}

func (w *World) SetLinearVelocity(id BodyID, v geom.Vec2) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind == StaticBody {
		return nil
	}
	if geom.Dot(v, v) > 0 {
		b.setAwake(true)
	}
	b.linearVelocity = v
	return nil
}

func (w *World) AngularVelocity(id BodyID) (float64, error) {
	b, err := w.body(id)
	if err != nil {
		return 0, err
	}
	return b.angularVelocity, nil
}

func (w *World) SetAngularVelocity(id BodyID, omega float64) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind == StaticBody {
		return nil
	}
	if omega*omega > 0 {
		b.setAwake(true)
	}
	b.angularVelocity = omega
	return nil
}

func (w *World) SetAwake(id BodyID, awake bool) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	b.setAwake(awake)
	return nil
}

func (w *World) IsAwake(id BodyID) (bool, error) {
	b, err := w.body(id)
	if err != nil {
		return false, err
	}
	return b.isAwake(), nil
}

func (w *World) ApplyForce(id BodyID, force, point geom.Vec2, wake bool) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind != DynamicBody {
		return nil
	}
	if wake && !b.isAwake() {
		b.setAwake(true)
	}
	if b.isAwake() {
		b.force = b.force.Add(force)
		b.torque += geom.Cross(point.Sub(b.sweep.C), force)
	}
	return nil
}

func (w *World) ApplyLinearImpulse(id BodyID, impulse, point geom.Vec2, wake bool) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind != DynamicBody {
		return nil
	}
	if wake && !b.isAwake() {
		b.setAwake(true)
	}
	if b.isAwake() {
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
		b.angularVelocity += b.invI * geom.Cross(point.Sub(b.sweep.C), impulse)
	}
	return nil
}

func (w *World) ApplyAngularImpulse(id BodyID, impulse float64, wake bool) error {
	b, err := w.body(id)
	if err != nil {
		return err
	}
	if b.kind != DynamicBody {
		return nil
	}
	if wake && !b.isAwake() {
		b.setAwake(true)
	}
	if b.isAwake() {
		b.angularVelocity += b.invI * impulse
	}
	return nil
}

// resetMassData recomputes mass, center of mass and rotational inertia
// from the density of every attached fixture, the way the teacher's
// ResetMassData does, and updates the sweep's center-of-mass velocity so
// a change in center doesn't introduce a velocity discontinuity.
func (w *World) resetMassData(id BodyID) {
	b := &w.bodies[id.index]

	b.mass, b.invMass = 0, 0
	b.I, b.invI = 0, 0
	b.sweep.LocalCenter = geom.Zero2

	if b.kind != DynamicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	localCenter := geom.Zero2
	for _, fid := range b.fixtures {
		f := &w.fixtures[fid.index]
		if f.density == 0 {
			continue
		}
		md := w.shapeOf(f.shape).ComputeMass(f.density)
		b.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mul(md.Mass))
		b.I += md.I
	}

	if b.mass > 0 {
		b.invMass = 1.0 / b.mass
		localCenter = localCenter.Mul(b.invMass)
	} else {
		b.mass, b.invMass = 1.0, 1.0
	}

	if b.I > 0 && !b.isFixedRotation() {
		b.I -= b.mass * geom.Dot(localCenter, localCenter)
		b.invI = 1.0 / b.I
	} else {
		b.I, b.invI = 0, 0
	}

	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C0 = geom.Apply(b.xf, localCenter)
	b.sweep.C = geom.Apply(b.xf, localCenter)
	b.linearVelocity = b.linearVelocity.Add(geom.CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// shouldCollide reports whether two bodies' fixtures are even candidates
// for collision: at least one must be dynamic, and no joint between them
// may forbid it.
func (w *World) shouldCollide(a, b BodyID) bool {
	ba, bb := &w.bodies[a.index], &w.bodies[b.index]
	if ba.kind != DynamicBody && bb.kind != DynamicBody {
		return false
	}
	for _, je := range ba.joints {
		if je.other == b && !w.jointCollideConnected(je.joint) {
			return false
		}
	}
	return true
}
