package cmd

import (
	"context"
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"

	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

type vec2 struct {
	x, y float64
}

// demo is a small simulation that gives the admin server something to report on.
type demo struct {
	world      *worldstats.World
	positions  []vec2
	velocities []vec2
	health     []float64
	spread     float64

	position, velocity, healthComp uint64
}

func newDemo(entities int) (*demo, error) {
	d := &demo{
		world:      worldstats.NewWorld(),
		positions:  make([]vec2, entities),
		velocities: make([]vec2, entities),
		health:     make([]float64, entities),
	}
	for i := range d.velocities {
		d.velocities[i] = vec2{x: rand.Float64() - 0.5, y: rand.Float64() - 0.5}
		d.health[i] = 100
	}

	d.position = d.world.RegisterComponent("Position", 16)
	d.velocity = d.world.RegisterComponent("Velocity", 16)
	d.healthComp = d.world.RegisterComponent("Health", 8)

	systems := []struct {
		id    string
		phase worldstats.Phase
		fn    func()
		opts  []worldstats.SystemOption
	}{
		{id: "Spawn", phase: worldstats.OnLoad, fn: d.spawn, opts: []worldstats.SystemOption{worldstats.WithPeriod(1)}},
		{id: "Move", phase: worldstats.OnUpdate, fn: d.move, opts: []worldstats.SystemOption{worldstats.WithSignature("Position, Velocity")}},
		{id: "Bounce", phase: worldstats.OnValidate, fn: d.bounce, opts: []worldstats.SystemOption{worldstats.WithSignature("Position, Velocity")}},
		{id: "Decay", phase: worldstats.PostUpdate, fn: d.decay, opts: []worldstats.SystemOption{worldstats.WithSignature("Health")}},
		{id: "Render", phase: worldstats.OnStore, fn: d.render, opts: []worldstats.SystemOption{worldstats.WithSignature("Position")}},
		{id: "Cleanup", phase: worldstats.Manual, fn: nil, opts: []worldstats.SystemOption{worldstats.Hidden()}},
	}
	for _, s := range systems {
		if _, err := d.world.RegisterSystem(s.id, s.phase, s.fn, s.opts...); err != nil {
			return nil, err
		}
	}
	if err := d.world.RegisterFeature("Physics", false, "Move", "Bounce"); err != nil {
		return nil, err
	}

	d.updateCounts()
	return d, nil
}

func (d *demo) updateCounts() {
	n := uint32(len(d.positions))
	d.world.SetEntityCount(n)
	d.world.SetTableCount(2)
	for _, handle := range []uint64{d.position, d.velocity, d.healthComp} {
		d.world.SetComponentCount(handle, n, 1)
	}
	for _, id := range []string{"Move", "Bounce", "Decay", "Render"} {
		d.world.SetSystemMatches(id, 1, n)
	}
}

func (d *demo) spawn() {
	d.positions = append(d.positions, vec2{})
	d.velocities = append(d.velocities, vec2{x: rand.Float64() - 0.5, y: rand.Float64() - 0.5})
	d.health = append(d.health, 100)
	d.updateCounts()
}

func (d *demo) move() {
	for i := range d.positions {
		d.positions[i].x += d.velocities[i].x
		d.positions[i].y += d.velocities[i].y
	}
}

func (d *demo) bounce() {
	for i, p := range d.positions {
		if math.Abs(p.x) > 100 {
			d.velocities[i].x = -d.velocities[i].x
		}
		if math.Abs(p.y) > 100 {
			d.velocities[i].y = -d.velocities[i].y
		}
	}
}

func (d *demo) decay() {
	for i := range d.health {
		d.health[i] = math.Max(0, d.health[i]-0.01)
	}
}

func (d *demo) render() {
	if len(d.positions) == 0 {
		return
	}
	var sum float64
	for _, p := range d.positions {
		sum += math.Hypot(p.x, p.y)
	}
	d.spread = sum / float64(len(d.positions))
	log.WithField("spread", d.spread).Trace("rendered frame")
}

// run progresses the world at fps frames per second until ctx is done.
func (d *demo) run(ctx context.Context, fps int) {
	ticker := clockz.RealClock.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	log.WithField("fps", fps).Info("demo world started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			d.world.Progress()
		}
	}
}
