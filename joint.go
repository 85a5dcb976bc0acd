package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// JointKind identifies which bilateral constraint a Joint enforces. The
// set is closed at the engine the same way Kind closes the shape union.
type JointKind uint8

const (
	RevoluteJoint JointKind = iota
	PrismaticJoint
	DistanceJoint
	PulleyJoint
	MouseJoint
	GearJoint
	WheelJoint
	WeldJoint
	FrictionJoint
	RopeJoint
	MotorJoint
)

// LimitState reports whether a joint's translation/angle limit is
// currently binding.
type LimitState uint8

const (
	LimitInactive LimitState = iota
	LimitAtLower
	LimitAtUpper
	LimitEqual
)

// jointSolverData is the per-island scratch state threaded through every
// joint's Init/Solve calls, the handle-based counterpart of the teacher's
// B2SolverData.
type jointSolverData struct {
	step       stepTimeInfo
	positions  []solverPosition
	velocities []solverVelocity
}

// jointImpl is what every concrete joint type implements; jointRecord
// stores one as an interface value the way the island solver iterates
// them polymorphically.
type jointImpl interface {
	initVelocityConstraints(w *World, sd jointSolverData)
	solveVelocityConstraints(w *World, sd jointSolverData)
	solvePositionConstraints(w *World, sd jointSolverData) bool

	// reactionForce and reactionTorque report the constraint force/torque
	// bodyB exerts on bodyA, scaled by invDt the way the teacher's
	// GetReactionForce/GetReactionTorque turn an accumulated impulse back
	// into a force. Every joint kind implements both, even ones (distance,
	// rope, pulley) whose torque is always zero.
	reactionForce(invDt float64) geom.Vec2
	reactionTorque(invDt float64) float64

	// coordinate and coordinateSpeed report the joint's single scalar
	// degree of freedom and its rate, the counterpart of the teacher's
	// GetJointAngle/GetJointTranslation and GetJointSpeed. Joints with no
	// natural scalar coordinate (distance, pulley, weld, mouse, gear,
	// friction, rope, motor) report 0 for both.
	coordinate(w *World) float64
	coordinateSpeed(w *World) float64
}

type jointRecord struct {
	generation uint32
	destroyed  bool

	kind             JointKind
	bodyA, bodyB     BodyID
	collideConnected bool
	userData         interface{}

	impl jointImpl
}

// JointConf seeds CreateJoint. It's a closed union of every joint kind's
// parameters the way FixtureConf and BodyConf aren't, since joints vary
// far more in shape; set Kind and only the fields that kind reads.
type JointConf struct {
	Kind             JointKind
	BodyA, BodyB     BodyID
	CollideConnected bool
	UserData         interface{}

	// Anchor points, local to each body, used by revolute/prismatic/
	// distance/weld/rope/wheel/pulley/friction; mouse reads LocalAnchorB only.
	LocalAnchorA, LocalAnchorB geom.Vec2

	// Reference angle (bodyB.angle - bodyA.angle at rest), used by
	// revolute/prismatic/weld.
	ReferenceAngle float64

	// Local axis, used by prismatic/wheel.
	LocalAxisA geom.Vec2

	// Limit configuration, used by revolute/prismatic.
	EnableLimit          bool
	LowerLimit, UpperLimit float64

	// Motor configuration, used by revolute/prismatic/wheel.
	EnableMotor          bool
	MotorSpeed           float64
	MaxMotorForce        float64
	MaxMotorTorque       float64

	// Distance/rope length and soft-constraint tuning.
	Length             float64
	MaxLength          float64
	FrequencyHz        float64
	DampingRatio       float64

	// Weld soft-constraint tuning (zero frequency = rigid).
	WeldFrequencyHz  float64
	WeldDampingRatio float64

	// Mouse joint target and max force.
	Target        geom.Vec2
	MaxForce      float64

	// Friction/motor joint linear+angular caps.
	MaxForceLinear  float64
	MaxTorque       float64

	// Motor joint target offsets and position-correction gain.
	LinearOffset     geom.Vec2
	AngularOffset    float64
	CorrectionFactor float64

	// Pulley joint geometry.
	GroundAnchorA, GroundAnchorB geom.Vec2
	LengthA, LengthB             float64
	Ratio                        float64

	// Gear joint: the two joints it couples, which must each be a
	// revolute or prismatic joint sharing a body with the gear's bodies.
	JointA, JointB JointID
}

func (w *World) jointRec(id JointID) (*jointRecord, error) {
	if id.index < 0 || id.index >= len(w.joints) {
		return nil, newError(OutOfRange, "joint %v out of range", id)
	}
	j := &w.joints[id.index]
	if j.destroyed || j.generation != id.generation {
		return nil, newError(OutOfRange, "joint %v destroyed", id)
	}
	return j, nil
}

func (w *World) jointCollideConnected(id JointID) bool {
	j, err := w.jointRec(id)
	if err != nil {
		return true
	}
	return j.collideConnected
}

// CreateJoint builds a bilateral constraint between two bodies. Fails
// InvalidArgument if the bodies are identical.
func (w *World) CreateJoint(conf JointConf) (JointID, error) {
	if w.locked {
		return InvalidJointID, newError(WrongState, "CreateJoint called while world is locked")
	}
	if conf.BodyA == conf.BodyB {
		return InvalidJointID, newError(InvalidArgument, "joint cannot connect a body to itself")
	}
	bA, err := w.body(conf.BodyA)
	if err != nil {
		return InvalidJointID, err
	}
	bB, err := w.body(conf.BodyB)
	if err != nil {
		return InvalidJointID, err
	}

	impl, err := newJointImpl(conf)
	if err != nil {
		return InvalidJointID, err
	}

	rec := jointRecord{
		kind:             conf.Kind,
		bodyA:            conf.BodyA,
		bodyB:            conf.BodyB,
		collideConnected: conf.CollideConnected,
		userData:         conf.UserData,
		impl:             impl,
	}
	idx, gen := w.allocJoint(rec)
	id := JointID{index: idx, generation: gen}

	bA.joints = append(bA.joints, jointEdge{joint: id, other: conf.BodyB})
	bB.joints = append(bB.joints, jointEdge{joint: id, other: conf.BodyA})

	bA.setAwake(true)
	bB.setAwake(true)

	return id, nil
}

func newJointImpl(conf JointConf) (jointImpl, error) {
	switch conf.Kind {
	case RevoluteJoint:
		return newRevoluteJoint(conf), nil
	case PrismaticJoint:
		return newPrismaticJoint(conf), nil
	case DistanceJoint:
		return newDistanceJoint(conf), nil
	case PulleyJoint:
		return newPulleyJoint(conf), nil
	case MouseJoint:
		return newMouseJoint(conf), nil
	case GearJoint:
		return nil, newError(InvalidArgument, "gear joint must be created with CreateGearJoint")
	case WheelJoint:
		return newWheelJoint(conf), nil
	case WeldJoint:
		return newWeldJoint(conf), nil
	case FrictionJoint:
		return newFrictionJoint(conf), nil
	case RopeJoint:
		return newRopeJoint(conf), nil
	case MotorJoint:
		return newMotorJoint(conf), nil
	}
	return nil, newError(InvalidArgument, "unknown joint kind %d", conf.Kind)
}

// CreateGearJoint builds a gear joint coupling two existing revolute or
// prismatic joints; it's split out from CreateJoint because it needs to
// resolve jointA/jointB's implementations up front.
func (w *World) CreateGearJoint(conf JointConf) (JointID, error) {
	if w.locked {
		return InvalidJointID, newError(WrongState, "CreateGearJoint called while world is locked")
	}
	recA, err := w.jointRec(conf.JointA)
	if err != nil {
		return InvalidJointID, err
	}
	recB, err := w.jointRec(conf.JointB)
	if err != nil {
		return InvalidJointID, err
	}
	impl, err := newGearJoint(w, conf, recA, recB)
	if err != nil {
		return InvalidJointID, err
	}

	bA, err := w.body(conf.BodyA)
	if err != nil {
		return InvalidJointID, err
	}
	bB, err := w.body(conf.BodyB)
	if err != nil {
		return InvalidJointID, err
	}

	rec := jointRecord{
		kind:             GearJoint,
		bodyA:            conf.BodyA,
		bodyB:            conf.BodyB,
		collideConnected: conf.CollideConnected,
		userData:         conf.UserData,
		impl:             impl,
	}
	idx, gen := w.allocJoint(rec)
	id := JointID{index: idx, generation: gen}
	bA.joints = append(bA.joints, jointEdge{joint: id, other: conf.BodyB})
	bB.joints = append(bB.joints, jointEdge{joint: id, other: conf.BodyA})
	return id, nil
}

// DestroyJoint removes a joint and wakes both endpoint bodies.
func (w *World) DestroyJoint(id JointID) error {
	if w.locked {
		return newError(WrongState, "DestroyJoint called while world is locked")
	}
	j, err := w.jointRec(id)
	if err != nil {
		return err
	}
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	bA.setAwake(true)
	bB.setAwake(true)
	removeJointEdge(bA, id)
	removeJointEdge(bB, id)
	j.destroyed = true
	return nil
}

func removeJointEdge(b *body, id JointID) {
	for i, je := range b.joints {
		if je.joint == id {
			b.joints = append(b.joints[:i], b.joints[i+1:]...)
			return
		}
	}
}

func (w *World) JointBodies(id JointID) (BodyID, BodyID, error) {
	j, err := w.jointRec(id)
	if err != nil {
		return InvalidBodyID, InvalidBodyID, err
	}
	return j.bodyA, j.bodyB, nil
}

// worldPoint and worldVector turn a body-local point/vector into its
// current world-space equivalent, the counterpart of the teacher's
// B2Body.GetWorldPoint/GetWorldVector.
func worldPoint(b *body, local geom.Vec2) geom.Vec2 {
	return geom.Apply(b.xf, local)
}

func worldVector(b *body, local geom.Vec2) geom.Vec2 {
	return geom.MulRotVec2(b.xf.Q, local)
}

// GetJointTranslation reports a prismatic or wheel joint's projected
// linear displacement along its axis and a revolute joint's angle; every
// other joint kind has no natural scalar coordinate and reports 0,
// matching coordinate's doc.
func (w *World) GetJointTranslation(id JointID) (float64, error) {
	j, err := w.jointRec(id)
	if err != nil {
		return 0, err
	}
	return j.impl.coordinate(w), nil
}

// GetJointSpeed reports the rate of change of GetJointTranslation (or,
// for a revolute joint, the relative angular velocity).
func (w *World) GetJointSpeed(id JointID) (float64, error) {
	j, err := w.jointRec(id)
	if err != nil {
		return 0, err
	}
	return j.impl.coordinateSpeed(w), nil
}

// GetReactionForce reports the constraint force bodyB exerts on bodyA,
// reconstructed from the joint's accumulated impulse the way the
// teacher's GetReactionForce(inv_dt) does. invDt is normally the
// inverse of the step's dt (1/dt).
func (w *World) GetReactionForce(id JointID, invDt float64) (geom.Vec2, error) {
	j, err := w.jointRec(id)
	if err != nil {
		return geom.Vec2{}, err
	}
	return j.impl.reactionForce(invDt), nil
}

// GetReactionTorque reports the constraint torque bodyB exerts on
// bodyA, the counterpart of the teacher's GetReactionTorque(inv_dt).
func (w *World) GetReactionTorque(id JointID, invDt float64) (float64, error) {
	j, err := w.jointRec(id)
	if err != nil {
		return 0, err
	}
	return j.impl.reactionTorque(invDt), nil
}
