// Command physicsdemo drops a small stack of boxes onto a static ground and
// logs step statistics, the way grinova-physicsnet-server/cmd/sandbox
// drives its world from a flag-configured main.
package main

import (
	"flag"
	"log"

	impulse2d "github.com/seongjinhong-ca/impulse2d"
	"github.com/seongjinhong-ca/impulse2d/geom"
)

var (
	dt                 = flag.Float64("dt", 1.0/60.0, "fixed simulation time step, in seconds")
	velocityIterations = flag.Int("velocity-iterations", 8, "velocity solver iterations per step")
	positionIterations = flag.Int("position-iterations", 3, "position solver iterations per step")
	gravityY           = flag.Float64("gravity-y", -10, "world gravity along Y")
	steps              = flag.Int("steps", 180, "number of steps to run before exiting")
	boxCount           = flag.Int("boxes", 5, "number of boxes to stack")
)

func main() {
	flag.Parse()

	w := impulse2d.NewWorld(impulse2d.DefaultWorldConf())

	groundShape, err := w.CreateShape(geom.NewBox(25, 1))
	if err != nil {
		log.Fatalf("creating ground shape: %v", err)
	}
	ground, err := w.CreateBody(impulse2d.BodyConf{
		Type: impulse2d.StaticBody, Active: true, AllowSleep: true, Awake: true,
	})
	if err != nil {
		log.Fatalf("creating ground body: %v", err)
	}
	if _, err := w.CreateFixture(impulse2d.FixtureConf{
		Body: ground, Shape: groundShape, Friction: 0.4, Filter: impulse2d.DefaultFilter(),
	}); err != nil {
		log.Fatalf("creating ground fixture: %v", err)
	}

	boxShape, err := w.CreateShape(geom.NewBox(0.5, 0.5))
	if err != nil {
		log.Fatalf("creating box shape: %v", err)
	}

	boxes := make([]impulse2d.BodyID, 0, *boxCount)
	for i := 0; i < *boxCount; i++ {
		b, err := w.CreateBody(impulse2d.BodyConf{
			Type:         impulse2d.DynamicBody,
			Position:     geom.Vec2{X: 0, Y: 1 + float64(i)*1.1},
			Active:       true,
			AllowSleep:   true,
			Awake:        true,
			GravityScale: 1,
		})
		if err != nil {
			log.Fatalf("creating box %d: %v", i, err)
		}
		if _, err := w.CreateFixture(impulse2d.FixtureConf{
			Body: b, Shape: boxShape, Density: 1, Friction: 0.4, Filter: impulse2d.DefaultFilter(),
		}); err != nil {
			log.Fatalf("creating box %d fixture: %v", i, err)
		}
		boxes = append(boxes, b)
	}

	conf := impulse2d.DefaultStepConf()
	conf.Dt = *dt
	conf.VelocityIterations = *velocityIterations
	conf.PositionIterations = *positionIterations
	conf.Gravity = geom.Vec2{X: 0, Y: *gravityY}

	w.SetListeners(impulse2d.Listeners{
		BeginContact: func(ref impulse2d.ContactRef) {
			a, b := ref.Fixtures()
			log.Printf("begin contact: fixtures %v / %v", a, b)
		},
	})

	for i := 0; i < *steps; i++ {
		stats, err := w.Step(conf)
		if err != nil {
			log.Fatalf("step %d: %v", i, err)
		}
		if i%30 == 0 {
			log.Printf("step %d: bodies=%d contacts=%d touching=%d islands=%d",
				i, stats.BodyCount, stats.ContactCount, stats.TouchingContacts, stats.IslandCount)
		}
	}

	for i, b := range boxes {
		pos, err := w.Position(b)
		if err != nil {
			log.Fatalf("reading box %d position: %v", i, err)
		}
		log.Printf("box %d final position: (%.3f, %.3f)", i, pos.X, pos.Y)
	}
}
