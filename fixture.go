package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// Filter controls which fixture pairs the broad phase even offers to
// narrow phase: two fixtures collide when (a.mask & b.category) != 0 and
// (b.mask & a.category) != 0, unless they share a nonzero group index, in
// which case the sign of the group index overrides the bitmask test.
type Filter struct {
	CategoryBits uint16
	MaskBits     uint16
	GroupIndex   int16
}

// DefaultFilter collides with everything, the teacher's B2Filter default.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

// ShouldCollide applies the category/mask/group rule two filters must pass
// before their fixtures are handed to narrow phase.
func (f Filter) ShouldCollide(other Filter) bool {
	if f.GroupIndex == other.GroupIndex && f.GroupIndex != 0 {
		return f.GroupIndex > 0
	}
	return f.MaskBits&other.CategoryBits != 0 && f.CategoryBits&other.MaskBits != 0
}

// FixtureConf seeds CreateFixture.
type FixtureConf struct {
	Body        BodyID
	Shape       ShapeID
	Friction    float64
	Restitution float64
	Density     float64
	IsSensor    bool
	Filter      Filter
	UserData    interface{}
}

// DefaultFixtureConf mirrors the teacher's B2FixtureDef defaults.
func DefaultFixtureConf() FixtureConf {
	return FixtureConf{Friction: 0.2, Filter: DefaultFilter()}
}

type fixtureProxy struct {
	aabb       geom.AABB
	childIndex int
	proxyID    int
}

type fixture struct {
	generation uint32
	destroyed  bool

	body  BodyID
	shape ShapeID

	friction    float64
	restitution float64
	density     float64
	isSensor    bool
	filter      Filter

	proxies []fixtureProxy

	userData interface{}
}

func (w *World) fixtureRec(id FixtureID) (*fixture, error) {
	if id.index < 0 || id.index >= len(w.fixtures) {
		return nil, newError(OutOfRange, "fixture %v out of range", id)
	}
	f := &w.fixtures[id.index]
	if f.destroyed || f.generation != id.generation {
		return nil, newError(OutOfRange, "fixture %v destroyed", id)
	}
	return f, nil
}

// CreateFixture attaches a shape to a body, registering a broad-phase
// proxy per shape child. Fails WrongState while locked, InvalidArgument
// for a negative density and OutOfRange for a dangling body/shape handle.
func (w *World) CreateFixture(conf FixtureConf) (FixtureID, error) {
	if w.locked {
		return InvalidFixtureID, newError(WrongState, "CreateFixture called while world is locked")
	}
	if conf.Density < 0 {
		return InvalidFixtureID, newError(InvalidArgument, "fixture density must be non-negative")
	}
	b, err := w.body(conf.Body)
	if err != nil {
		return InvalidFixtureID, err
	}
	slot, err := w.shapeSlot(conf.Shape)
	if err != nil {
		return InvalidFixtureID, err
	}

	f := fixture{
		body:        conf.Body,
		shape:       conf.Shape,
		friction:    conf.Friction,
		restitution: conf.Restitution,
		density:     conf.Density,
		isSensor:    conf.IsSensor,
		filter:      conf.Filter,
		userData:    conf.UserData,
	}
	slot.refs++

	childCount := slot.shape.ChildCount()
	f.proxies = make([]fixtureProxy, childCount)

	idx, gen := w.allocFixture(f)
	id := FixtureID{index: idx, generation: gen}

	b.fixtures = append(b.fixtures, id)

	if b.isActive() {
		w.createProxies(id, b.xf)
		w.newFixture = true
	}

	if f.density > 0 {
		w.resetMassData(conf.Body)
	}

	return id, nil
}

// DestroyFixture removes a fixture and every contact touching it.
func (w *World) DestroyFixture(id FixtureID) error {
	if w.locked {
		return newError(WrongState, "DestroyFixture called while world is locked")
	}
	f, err := w.fixtureRec(id)
	if err != nil {
		return err
	}
	density := f.density
	bodyID := f.body

	w.destroyFixtureInternal(id)
	w.removeFixtureFromBody(bodyID, id)

	if density > 0 {
		w.resetMassData(bodyID)
	}
	return nil
}

func (w *World) destroyFixtureInternal(id FixtureID) {
	f := &w.fixtures[id.index]
	if f.destroyed {
		return
	}
	for _, cid := range w.contactManager.touching(id) {
		w.contactManager.destroy(cid)
	}
	w.destroyProxies(id)
	if slot, err := w.shapeSlot(f.shape); err == nil {
		slot.refs--
	}
	f.destroyed = true
	f.proxies = nil
}

func (w *World) removeFixtureFromBody(bodyID BodyID, id FixtureID) {
	b := &w.bodies[bodyID.index]
	for i, fid := range b.fixtures {
		if fid == id {
			b.fixtures = append(b.fixtures[:i], b.fixtures[i+1:]...)
			break
		}
	}
}

func (w *World) createProxies(id FixtureID, xf geom.Transform) {
	f := &w.fixtures[id.index]
	shape := w.shapeOf(f.shape)
	for i := range f.proxies {
		aabb := shape.ComputeAABB(xf, i)
		f.proxies[i].aabb = aabb
		f.proxies[i].childIndex = i
		f.proxies[i].proxyID = w.broadPhase.CreateProxy(aabb, fixtureTag(id, i))
	}
}

func (w *World) destroyProxies(id FixtureID) {
	f := &w.fixtures[id.index]
	for i := range f.proxies {
		w.broadPhase.DestroyProxy(f.proxies[i].proxyID)
		f.proxies[i].proxyID = -1
	}
}

// synchronizeFixture recomputes one fixture's proxy AABBs from the swept
// motion between transform1 and transform2, feeding the broad phase a
// predictive displacement the way the teacher's Synchronize does.
func (w *World) synchronizeFixture(id FixtureID, xf1, xf2 geom.Transform) {
	f := &w.fixtures[id.index]
	shape := w.shapeOf(f.shape)
	for i := range f.proxies {
		aabb1 := shape.ComputeAABB(xf1, i)
		aabb2 := shape.ComputeAABB(xf2, i)
		fat := geom.Combine(aabb1, aabb2)
		f.proxies[i].aabb = fat
		displacement := xf2.P.Sub(xf1.P)
		w.broadPhase.MoveProxy(f.proxies[i].proxyID, fat, displacement)
	}
}

func (w *World) synchronizeFixtures(id BodyID) {
	b := &w.bodies[id.index]
	xf1 := geom.Transform{Q: geom.RotFromAngle(b.sweep.A0), P: b.sweep.C0.Sub(geom.MulRotVec2(geom.RotFromAngle(b.sweep.A0), b.sweep.LocalCenter))}
	for _, fid := range b.fixtures {
		w.synchronizeFixture(fid, xf1, b.xf)
	}
}

// SetFilterData replaces a fixture's collision filter and flags every
// touching contact for a filter re-check on the next Step.
func (w *World) SetFilterData(id FixtureID, filter Filter) error {
	f, err := w.fixtureRec(id)
	if err != nil {
		return err
	}
	f.filter = filter
	w.refilter(id)
	return nil
}

func (w *World) refilter(id FixtureID) {
	for _, cid := range w.contactManager.touching(id) {
		w.contactManager.flagFilter(cid)
	}
	f := &w.fixtures[id.index]
	for i := range f.proxies {
		w.broadPhase.TouchProxy(f.proxies[i].proxyID)
	}
}

func (w *World) SetSensor(id FixtureID, sensor bool) error {
	f, err := w.fixtureRec(id)
	if err != nil {
		return err
	}
	if f.isSensor == sensor {
		return nil
	}
	f.isSensor = sensor
	bodyID := f.body
	b := &w.bodies[bodyID.index]
	b.setAwake(true)
	return nil
}

func (w *World) FixtureBody(id FixtureID) (BodyID, error) {
	f, err := w.fixtureRec(id)
	if err != nil {
		return InvalidBodyID, err
	}
	return f.body, nil
}

func (w *World) FixtureShape(id FixtureID) (ShapeID, error) {
	f, err := w.fixtureRec(id)
	if err != nil {
		return InvalidShapeID, err
	}
	return f.shape, nil
}

func (w *World) SetFriction(id FixtureID, friction float64) error {
	f, err := w.fixtureRec(id)
	if err != nil {
		return err
	}
	f.friction = friction
	return nil
}

func (w *World) SetRestitution(id FixtureID, restitution float64) error {
	f, err := w.fixtureRec(id)
	if err != nil {
		return err
	}
	f.restitution = restitution
	return nil
}

// fixtureTag packs a FixtureID, its generation and a shape child index into
// the plain int the broad phase carries as proxy user data, since the
// broad-phase package doesn't know about this package's handle types. Box2D
// gives every shape child its own FixtureProxy for exactly this reason: a
// chain's edges must be distinguishable pairs in UpdatePairs, not a single
// fixture-wide tag that collapses every child onto child 0.
const (
	fixtureTagGenerationBits = 32
	fixtureTagChildBits      = 8
)

func fixtureTag(id FixtureID, childIndex int) int {
	return id.index<<(fixtureTagGenerationBits+fixtureTagChildBits) |
		childIndex<<fixtureTagGenerationBits |
		int(id.generation)
}

func fixtureIDFromTag(tag int) (FixtureID, int) {
	generation := uint32(tag & 0xFFFFFFFF)
	childIndex := int(tag>>fixtureTagGenerationBits) & 0xFF
	index := tag >> (fixtureTagGenerationBits + fixtureTagChildBits)
	return FixtureID{index: index, generation: generation}, childIndex
}
