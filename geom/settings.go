package geom

// Tuning constants ported from the teacher's CommonB2Settings.go. These are
// the defaults StepConf seeds; callers may override any of them per-step.
const (
	MaxManifoldPoints = 2

	AABBExtension        = 0.1
	AABBMultiplier       = 2.0
	LinearSlop           = 0.005
	AngularSlop          = 2.0 / 180.0 * Pi
	MaxLinearCorrection  = 0.2
	MaxAngularCorrection = 8.0 / 180.0 * Pi
	MaxTranslation       = 2.0
	MaxRotation          = 0.5 * Pi
	Baumgarte            = 0.2
	ToiBaumgarte         = 0.75

	TimeToSleep             = 0.5
	LinearSleepTolerance    = 0.01
	AngularSleepTolerance   = 2.0 / 180.0 * Pi

	VelocityThreshold = 1.0

	MaxSubSteps    = 8
	MaxTOIContacts = 32

	MinVertexRadius = LinearSlop
	MaxVertexRadius = 10.0
)
