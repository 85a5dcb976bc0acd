package impulse2d

// BodyID, FixtureID, ShapeID, contactID and JointID are small handles into
// the World's own dense arrays rather than pointers into a linked list: the
// teacher's B2Body/B2Fixture/B2Contact/B2Joint are all addressed by pointer,
// but a handle plus a generation counter lets the World detect a caller
// reaching for a body that has since been destroyed and its slot reused,
// instead of silently dereferencing stale memory.
type BodyID struct {
	index      int
	generation uint32
}

type FixtureID struct {
	index      int
	generation uint32
}

type contactID struct {
	index      int
	generation uint32
}

type JointID struct {
	index      int
	generation uint32
}

// InvalidBodyID is the zero value of BodyID; no body created by a World is
// ever equal to it, since index 0's first generation starts at 1.
var InvalidBodyID = BodyID{}

var InvalidFixtureID = FixtureID{}

var InvalidJointID = JointID{}

func (id BodyID) IsValid() bool    { return id.generation != 0 }
func (id FixtureID) IsValid() bool { return id.generation != 0 }
func (id JointID) IsValid() bool   { return id.generation != 0 }
