package instance

import (
	"math/rand/v2"
)

// Point is an integer placement inside the square area.
type Point struct {
	X, Y int
}

// within reports whether q lies at Euclidean distance <= radius from p.
func (p Point) within(q Point, radius int) bool {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx+dy*dy <= radius*radius
}

// Layout is the node placement an instance was generated from.
type Layout struct {
	POIs    []Point
	Sensors []Point
	Sinks   []Point
}

// Place draws the node placement for the given parameters.
//
// POIs are drawn first, then sensors, then sinks, each coordinate uniformly in
// [0, AreaSide). A single sink is placed at the center of the area instead.
// The same parameters always yield the same layout.
func Place(p Params) Layout {
	rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(p.Seed)^0x9e3779b97f4a7c15))
	draw := func() Point {
		if p.AreaSide <= 0 {
			return Point{}
		}
		return Point{X: rng.IntN(p.AreaSide), Y: rng.IntN(p.AreaSide)}
	}

	layout := Layout{
		POIs:    make([]Point, p.POIs),
		Sensors: make([]Point, p.Sensors),
		Sinks:   make([]Point, p.Sinks),
	}
	for i := range layout.POIs {
		layout.POIs[i] = draw()
	}
	for i := range layout.Sensors {
		layout.Sensors[i] = draw()
	}
	if p.Sinks == 1 {
		layout.Sinks[0] = Point{X: p.AreaSide / 2, Y: p.AreaSide / 2}
	} else {
		for i := range layout.Sinks {
			layout.Sinks[i] = draw()
		}
	}
	return layout
}

// Generate builds an instance from a seeded random placement.
//
// Coverage edges join a sensor to every POI within CoverageRadius.
// Communication edges join a sensor to every sink and every other sensor
// within CommunicationRadius.
func Generate(p Params) (*Instance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return FromLayout(p, Place(p))
}

// FromLayout builds an instance from an explicit placement.
func FromLayout(p Params, layout Layout) (*Instance, error) {
	b := NewBuilder(p)
	for i, sensor := range layout.Sensors {
		for j, poi := range layout.POIs {
			if sensor.within(poi, p.CoverageRadius) {
				b.Cover(j, i)
			}
		}
		for j, sink := range layout.Sinks {
			if sensor.within(sink, p.CommunicationRadius) {
				b.LinkSink(i, j)
			}
		}
		for j := i + 1; j < len(layout.Sensors); j++ {
			if sensor.within(layout.Sensors[j], p.CommunicationRadius) {
				b.Link(i, j)
			}
		}
	}
	return b.Build()
}
