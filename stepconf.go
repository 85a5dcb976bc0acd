package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// StepConf bundles every tunable Step reads, rather than reaching for
// package-level tuning constants the way the teacher's CommonB2Settings
// does: a World can run several different tunings (e.g. a coarse
// background simulation and a precise foreground one) without global
// state leaking between them.
type StepConf struct {
	Dt float64

	VelocityIterations int
	PositionIterations int

	LinearSlop           float64
	AngularSlop          float64
	MaxLinearCorrection  float64
	MaxAngularCorrection float64
	VelocityThreshold    float64
	MaxTranslation       float64
	MaxRotation          float64

	RegBaumgarte float64
	ToiBaumgarte float64

	MaxSubSteps      int
	MaxTOIIters      int
	MaxDistanceIters int
	MaxTOIRootIters  int

	WarmStarting bool

	// BlockSolve enables the 2x2 block solve for two-point contact
	// manifolds (spec 4.5); the teacher's testbed toggled this from a
	// package-level g_blockSolve global, but StepConf carries it as a
	// per-world setting instead so two worlds can disagree without one
	// leaking into the other.
	BlockSolve bool

	AABBExtension         float64
	DisplacementMultiplier float64

	Gravity geom.Vec2
}

// DefaultStepConf mirrors the teacher's compiled-in tuning constants so a
// caller that doesn't know better gets the same behavior as the original.
func DefaultStepConf() StepConf {
	return StepConf{
		Dt:                     1.0 / 60.0,
		VelocityIterations:     8,
		PositionIterations:     3,
		LinearSlop:             geom.LinearSlop,
		AngularSlop:            geom.AngularSlop,
		MaxLinearCorrection:    geom.MaxLinearCorrection,
		MaxAngularCorrection:   geom.MaxAngularCorrection,
		VelocityThreshold:      geom.VelocityThreshold,
		MaxTranslation:         geom.MaxTranslation,
		MaxRotation:            geom.MaxRotation,
		RegBaumgarte:           geom.Baumgarte,
		ToiBaumgarte:           geom.ToiBaumgarte,
		MaxSubSteps:            geom.MaxSubSteps,
		MaxTOIIters:            20,
		MaxDistanceIters:       20,
		MaxTOIRootIters:        50,
		WarmStarting:           true,
		BlockSolve:             true,
		AABBExtension:          geom.AABBExtension,
		DisplacementMultiplier: geom.AABBMultiplier,
		Gravity:                geom.Vec2{X: 0, Y: -10},
	}
}

// stepTimeInfo is the internal per-step/sub-step time info threaded
// through the contact and joint solvers, the handle-based counterpart of
// the teacher's B2TimeStep.
type stepTimeInfo struct {
	dt                 float64
	invDt              float64
	dtRatio            float64
	velocityIterations int
	positionIterations int
	warmStarting       bool
	blockSolve         bool
	velocityThreshold  float64
}

// StepStats is what Step returns: a record of what happened, for callers
// that want to log or assert on solver behavior without instrumenting
// listeners.
type StepStats struct {
	BodyCount          int
	ContactCount       int
	TouchingContacts   int
	JointCount         int
	IslandCount        int
	TOISubSteps        int
	DegenerateContacts int
	ProfileMillis      StepProfile
}

// StepProfile is a coarse per-phase timing breakdown, mirroring the
// teacher's B2Profile. Values are left zero unless a caller wants to
// instrument Step themselves; the core doesn't take wall-clock
// measurements on every call since that would make Step's cost
// observable and thus part of the determinism surface.
type StepProfile struct {
	Collide       float64
	SolveInit     float64
	SolveVelocity float64
	SolvePosition float64
	Broadphase    float64
	SolveTOI      float64
}
