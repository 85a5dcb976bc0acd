package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// ContactImpulse is the per-point normal/tangent impulse report a
// PostSolve listener receives, the handle-based counterpart of the
// teacher's B2ContactImpulse. Impulses are reported instead of forces
// since sub-step forces can blow up for stiff collisions.
type ContactImpulse struct {
	NormalImpulses  [geom.MaxManifoldPoints]float64
	TangentImpulses [geom.MaxManifoldPoints]float64
	Count           int
}

// Listeners bundles every callback a World dispatches during Step. All
// fields are optional; a nil callback is simply never called.
type Listeners struct {
	// ShouldCollide gets the final say over whether two fixtures are
	// even candidates for a contact, on top of the built-in filter-bits
	// check. Called once per candidate pair, not once per step.
	ShouldCollide func(a, b FixtureID) bool

	// BeginContact and EndContact fire the step a pair starts or stops
	// touching.
	BeginContact func(ContactRef)
	EndContact   func(ContactRef)

	// PreSolve fires once per touching, non-sensor contact before the
	// velocity solve, with the prior step's manifold so the caller can
	// detect what changed. Through the ContactRef the caller can read the
	// contact and adjust its friction and restitution; there is no call
	// that disables the contact or skips its solve.
	PreSolve func(ref ContactRef, oldManifold geom.Manifold)

	// PostSolve fires once per touching, solid, awake contact after the
	// solver is finished, reporting the impulses actually applied.
	PostSolve func(ref ContactRef, impulse ContactImpulse)

	// DestroyFixture and DestroyJoint fire when a body's destruction
	// cascades into its attached fixtures/joints, mirroring the
	// teacher's DestructionListener.
	DestroyFixture func(FixtureID)
	DestroyJoint   func(JointID)
}
