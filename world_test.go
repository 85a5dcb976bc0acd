package impulse2d

import (
	"testing"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return NewWorld(DefaultWorldConf())
}

func mustCreateBody(t *testing.T, w *World, conf BodyConf) BodyID {
	t.Helper()
	id, err := w.CreateBody(conf)
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	return id
}

func mustCreateShape(t *testing.T, w *World, shape geom.Shape) ShapeID {
	t.Helper()
	id, err := w.CreateShape(shape)
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}
	return id
}

func mustCreateFixture(t *testing.T, w *World, conf FixtureConf) FixtureID {
	t.Helper()
	id, err := w.CreateFixture(conf)
	if err != nil {
		t.Fatalf("CreateFixture: %v", err)
	}
	return id
}

// TestCircleSettlesOnGround covers spec 8 scenario 1: one dynamic circle
// with zero restitution dropped onto a static ground ends up resting on it
// without sinking through, checked by asserting its final height matches
// its radius plus the ground's half-height to within 0.05.
func TestCircleSettlesOnGround(t *testing.T) {
	w := newTestWorld(t)

	groundShape := mustCreateShape(t, w, geom.NewBox(50, 1))
	ground := mustCreateBody(t, w, BodyConf{Type: StaticBody, Position: geom.Vec2{X: 0, Y: 0}, Active: true, AllowSleep: true, Awake: true})
	mustCreateFixture(t, w, FixtureConf{Body: ground, Shape: groundShape, Friction: 0.3, Filter: DefaultFilter()})

	circleShape := mustCreateShape(t, w, geom.NewCircle(geom.Zero2, 0.5))
	circle := mustCreateBody(t, w, BodyConf{
		Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 3},
		Active: true, AllowSleep: true, Awake: true, GravityScale: 1,
	})
	mustCreateFixture(t, w, FixtureConf{Body: circle, Shape: circleShape, Density: 1, Friction: 0.3, Restitution: 0, Filter: DefaultFilter()})

	conf := DefaultStepConf()
	for i := 0; i < 240; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	pos, err := w.Position(circle)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	wantY := 1.0 + 0.5
	if diff := pos.Y - wantY; diff > 0.05 || diff < -0.05 {
		t.Errorf("settled Y = %v, want ~%v", pos.Y, wantY)
	}
}

// TestBoxStackSleeps covers spec 8 scenario 2: a stack of boxes dropped onto
// a static ground should come to rest and eventually go to sleep.
func TestBoxStackSleeps(t *testing.T) {
	w := newTestWorld(t)

	groundShape := mustCreateShape(t, w, geom.NewBox(50, 1))
	ground := mustCreateBody(t, w, BodyConf{Type: StaticBody, Position: geom.Vec2{X: 0, Y: 0}, Active: true, AllowSleep: true, Awake: true})
	mustCreateFixture(t, w, FixtureConf{Body: ground, Shape: groundShape, Friction: 0.4, Filter: DefaultFilter()})

	boxShape := mustCreateShape(t, w, geom.NewBox(0.5, 0.5))
	var boxes []BodyID
	for i := 0; i < 5; i++ {
		b := mustCreateBody(t, w, BodyConf{
			Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 1 + float64(i)*1.05},
			Active: true, AllowSleep: true, Awake: true, GravityScale: 1,
		})
		mustCreateFixture(t, w, FixtureConf{Body: b, Shape: boxShape, Density: 1, Friction: 0.4, Filter: DefaultFilter()})
		boxes = append(boxes, b)
	}

	conf := DefaultStepConf()
	allAsleep := false
	for i := 0; i < 600; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		allAsleep = true
		for _, b := range boxes {
			awake, err := w.IsAwake(b)
			if err != nil {
				t.Fatalf("IsAwake: %v", err)
			}
			if awake {
				allAsleep = false
				break
			}
		}
		if allAsleep {
			break
		}
	}

	if !allAsleep {
		t.Fatalf("box stack never went to sleep after 600 steps")
	}

	for i, b := range boxes {
		pos, err := w.Position(b)
		if err != nil {
			t.Fatalf("Position(box %d): %v", i, err)
		}
		if pos.Y < 0 {
			t.Errorf("box %d fell through the ground: y=%v", i, pos.Y)
		}
	}
}

// TestBulletDoesNotTunnelThroughWall covers spec 8 scenario 3: a fast
// ("bullet") circle fired at a thin static wall must be stopped by
// continuous collision instead of tunneling through. The per-step
// translation cap (2 m) holds the bullet to 2 m a step, so it reaches the
// wall within the ten steps run here.
func TestBulletDoesNotTunnelThroughWall(t *testing.T) {
	w := newTestWorld(t)

	wallShape := mustCreateShape(t, w, geom.NewBox(0.1, 5))
	wall := mustCreateBody(t, w, BodyConf{Type: StaticBody, Position: geom.Vec2{X: 10, Y: 0}, Active: true, AllowSleep: true, Awake: true})
	mustCreateFixture(t, w, FixtureConf{Body: wall, Shape: wallShape, Friction: 0.3, Filter: DefaultFilter()})

	bulletShape := mustCreateShape(t, w, geom.NewCircle(geom.Zero2, 0.2))
	bullet := mustCreateBody(t, w, BodyConf{
		Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 0},
		LinearVelocity: geom.Vec2{X: 400, Y: 0},
		Bullet:         true, Active: true, AllowSleep: true, Awake: true, GravityScale: 0,
	})
	mustCreateFixture(t, w, FixtureConf{Body: bullet, Shape: bulletShape, Density: 1, Filter: DefaultFilter()})

	conf := DefaultStepConf()
	conf.Gravity = geom.Zero2
	for i := 0; i < 10; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	pos, err := w.Position(bullet)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos.X > 10 {
		t.Errorf("bullet tunneled through the wall: x=%v, want <= ~10", pos.X)
	}
}

// TestStaticGroundDoesNotDriftUnderGravity covers spec 8 scenario 2's
// resting-contact case from the static side: a static ground body, once
// pulled into an island by a touching dynamic body, must not have gravity
// or damping integrated into it the way island.solve does for dynamic
// bodies, or it accumulates downward velocity and its transform drifts.
func TestStaticGroundDoesNotDriftUnderGravity(t *testing.T) {
	w := newTestWorld(t)

	groundShape := mustCreateShape(t, w, geom.NewBox(50, 1))
	ground := mustCreateBody(t, w, DefaultBodyConf())
	mustCreateFixture(t, w, FixtureConf{Body: ground, Shape: groundShape, Friction: 0.3, Filter: DefaultFilter()})

	circleShape := mustCreateShape(t, w, geom.NewCircle(geom.Zero2, 0.5))
	circle := mustCreateBody(t, w, BodyConf{
		Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 1.5},
		Active: true, AllowSleep: true, Awake: true, GravityScale: 1,
	})
	mustCreateFixture(t, w, FixtureConf{Body: circle, Shape: circleShape, Density: 1, Friction: 0.3, Filter: DefaultFilter()})

	conf := DefaultStepConf()
	for i := 0; i < 120; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	v, err := w.LinearVelocity(ground)
	if err != nil {
		t.Fatalf("LinearVelocity: %v", err)
	}
	if v.X != 0 || v.Y != 0 {
		t.Errorf("static ground accumulated velocity %v, want zero", v)
	}

	pos, err := w.Position(ground)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos.Y != 0 {
		t.Errorf("static ground drifted to y=%v, want 0", pos.Y)
	}
}

// TestKinematicBodyUnaffectedByGravityAndDamping covers the kinematic half
// of the same island.solve guard: a kinematic body keeps the velocity its
// caller gave it, neither accelerated by gravity nor decelerated by
// damping, since DefaultBodyConf leaves GravityScale at 1.
func TestKinematicBodyUnaffectedByGravityAndDamping(t *testing.T) {
	w := newTestWorld(t)

	shape := mustCreateShape(t, w, geom.NewBox(0.5, 0.5))
	conf := DefaultBodyConf()
	conf.Type = KinematicBody
	conf.LinearVelocity = geom.Vec2{X: 2, Y: 0}
	conf.AngularVelocity = 1
	conf.LinearDamping = 0.5
	conf.AngularDamping = 0.5
	platform := mustCreateBody(t, w, conf)
	mustCreateFixture(t, w, FixtureConf{Body: platform, Shape: shape, Density: 1, Filter: DefaultFilter()})

	step := DefaultStepConf()
	for i := 0; i < 60; i++ {
		if _, err := w.Step(step); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	v, err := w.LinearVelocity(platform)
	if err != nil {
		t.Fatalf("LinearVelocity: %v", err)
	}
	if v.X != 2 || v.Y != 0 {
		t.Errorf("kinematic linear velocity = %v, want {2 0} unaffected by gravity/damping", v)
	}

	omega, err := w.AngularVelocity(platform)
	if err != nil {
		t.Fatalf("AngularVelocity: %v", err)
	}
	if omega != 1 {
		t.Errorf("kinematic angular velocity = %v, want 1 unaffected by damping", omega)
	}
}

// TestChainChildrenFormIndependentContacts covers spec 8 scenario 5: a
// chain ground has one broad-phase proxy per edge, and a circle dropped
// onto the chain's second edge must settle there instead of falling
// through, which only works if the contact keys on (fixture, child) pairs
// rather than collapsing every child onto child 0.
func TestChainChildrenFormIndependentContacts(t *testing.T) {
	w := newTestWorld(t)

	chainShape := mustCreateShape(t, w, geom.NewChain([]geom.Vec2{
		{X: -5, Y: 0}, {X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0},
	}))
	chain := mustCreateBody(t, w, DefaultBodyConf())
	mustCreateFixture(t, w, FixtureConf{Body: chain, Shape: chainShape, Friction: 0.3, Filter: DefaultFilter()})

	circleShape := mustCreateShape(t, w, geom.NewCircle(geom.Zero2, 0.5))
	circle := mustCreateBody(t, w, BodyConf{
		Type: DynamicBody, Position: geom.Vec2{X: 2.5, Y: 3},
		Active: true, AllowSleep: true, Awake: true, GravityScale: 1,
	})
	mustCreateFixture(t, w, FixtureConf{Body: circle, Shape: circleShape, Density: 1, Friction: 0.3, Filter: DefaultFilter()})

	conf := DefaultStepConf()
	for i := 0; i < 240; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	pos, err := w.Position(circle)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	wantY := 0.5
	if diff := pos.Y - wantY; diff > 0.05 || diff < -0.05 {
		t.Errorf("settled Y = %v, want ~%v (circle fell through the chain's second edge)", pos.Y, wantY)
	}
}

// TestPrismaticJointTranslationBoundedByLimit covers spec 8 scenario 4: a
// dynamic body sliding on a vertical prismatic joint with a [-1, 1] limit
// falls under gravity until the lower limit catches it, and
// GetJointTranslation must stay queryable and within
// [-1-LinearSlop, 1+LinearSlop] throughout.
func TestPrismaticJointTranslationBoundedByLimit(t *testing.T) {
	w := newTestWorld(t)

	anchorShape := mustCreateShape(t, w, geom.NewBox(0.5, 0.5))
	anchor := mustCreateBody(t, w, DefaultBodyConf())
	mustCreateFixture(t, w, FixtureConf{Body: anchor, Shape: anchorShape, Filter: DefaultFilter()})

	sliderShape := mustCreateShape(t, w, geom.NewBox(0.25, 0.25))
	slider := mustCreateBody(t, w, BodyConf{
		Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 0.5},
		Active: true, AllowSleep: true, Awake: true, GravityScale: 1,
	})
	mustCreateFixture(t, w, FixtureConf{Body: slider, Shape: sliderShape, Density: 1, Filter: DefaultFilter()})

	joint, err := w.CreateJoint(JointConf{
		Kind:        PrismaticJoint,
		BodyA:       anchor,
		BodyB:       slider,
		LocalAxisA:  geom.Vec2{X: 0, Y: 1},
		EnableLimit: true,
		LowerLimit:  -1,
		UpperLimit:  1,
	})
	if err != nil {
		t.Fatalf("CreateJoint: %v", err)
	}

	conf := DefaultStepConf()
	bound := 1 + geom.LinearSlop
	for i := 0; i < 180; i++ {
		if _, err := w.Step(conf); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		translation, err := w.GetJointTranslation(joint)
		if err != nil {
			t.Fatalf("GetJointTranslation %d: %v", i, err)
		}
		if translation < -bound || translation > bound {
			t.Fatalf("translation at step %d = %v, want within [-%v, %v]", i, translation, bound, bound)
		}
	}

	translation, err := w.GetJointTranslation(joint)
	if err != nil {
		t.Fatalf("GetJointTranslation: %v", err)
	}
	if diff := translation - (-1); diff > 0.05 || diff < -0.05 {
		t.Errorf("settled translation = %v, want ~-1 (resting on the lower limit)", translation)
	}

	if _, err := w.GetJointSpeed(joint); err != nil {
		t.Fatalf("GetJointSpeed: %v", err)
	}
}

func TestCreateBodyRejectedWhileLocked(t *testing.T) {
	w := newTestWorld(t)
	w.SetListeners(Listeners{
		BeginContact: func(ContactRef) {
			_, err := w.CreateBody(DefaultBodyConf())
			if eerr, ok := err.(*EngineError); !ok || eerr.Kind != WrongState {
				t.Errorf("CreateBody while locked: got %v, want WrongState", err)
			}
		},
	})

	groundShape := mustCreateShape(t, w, geom.NewBox(50, 1))
	ground := mustCreateBody(t, w, BodyConf{Type: StaticBody, Active: true, AllowSleep: true, Awake: true})
	mustCreateFixture(t, w, FixtureConf{Body: ground, Shape: groundShape, Filter: DefaultFilter()})

	circleShape := mustCreateShape(t, w, geom.NewCircle(geom.Zero2, 0.5))
	circle := mustCreateBody(t, w, BodyConf{Type: DynamicBody, Position: geom.Vec2{X: 0, Y: 0.9}, Active: true, AllowSleep: true, Awake: true, GravityScale: 1})
	mustCreateFixture(t, w, FixtureConf{Body: circle, Shape: circleShape, Density: 1, Filter: DefaultFilter()})

	if _, err := w.Step(DefaultStepConf()); err != nil {
		t.Fatalf("Step: %v", err)
	}
}

func TestDestroyedBodyHandleReturnsOutOfRange(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.CreateBody(DefaultBodyConf())
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	if err := w.DestroyBody(id); err != nil {
		t.Fatalf("DestroyBody: %v", err)
	}

	_, err = w.Position(id)
	eerr, ok := err.(*EngineError)
	if !ok || eerr.Kind != OutOfRange {
		t.Errorf("Position(destroyed body) = %v, want OutOfRange", err)
	}
}

func TestDestroyedBodyGenerationMismatchCatchesStaleHandle(t *testing.T) {
	w := newTestWorld(t)
	first, err := w.CreateBody(DefaultBodyConf())
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	if err := w.DestroyBody(first); err != nil {
		t.Fatalf("DestroyBody: %v", err)
	}
	second, err := w.CreateBody(DefaultBodyConf())
	if err != nil {
		t.Fatalf("CreateBody (reuse slot): %v", err)
	}

	if first.index == second.index && first.generation == second.generation {
		t.Fatalf("expected generation to change on slot reuse")
	}

	// The stale handle must not silently resolve to the new body occupying
	// the same slot.
	_, err = w.Position(first)
	if err == nil {
		t.Errorf("Position(stale handle) succeeded, want OutOfRange")
	}
}
