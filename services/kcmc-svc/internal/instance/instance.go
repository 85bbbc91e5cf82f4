// Package instance provides the immutable KCMC instance graph.
//
// An instance holds three adjacency relations over integer ids:
//   - POI -> covering sensors (coverage radius)
//   - Sensor <-> Sensor (communication radius, symmetric)
//   - Sensor <-> Sink (communication radius, symmetric)
//
// There are no POI-POI, POI-Sink or Sink-Sink edges. Sensor activity is never
// stored on the instance: every query receives an exclusion set instead, so the
// same instance can be evaluated under many activation scenarios.
//
// Instances are built once (from geometry via Generate, from text via Parse, or
// by hand via Builder) and are read-only afterwards. The only derived structure
// cached on an instance is the split-vertex graph (see SplitGraph).
package instance

import (
	"fmt"
	"sync"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
)

// =============================================================================
// Parameters
// =============================================================================

// Params are the settings that identify an instance. Together with the
// placement generator they fully determine the edge set.
type Params struct {
	// POIs is the number of points of interest.
	POIs int
	// Sensors is the number of candidate installation spots.
	Sensors int
	// Sinks is the number of sinks.
	Sinks int

	// AreaSide is the side of the square placement area.
	AreaSide int
	// CoverageRadius bounds POI-Sensor coverage edges.
	CoverageRadius int
	// CommunicationRadius bounds Sensor-Sensor and Sensor-Sink edges.
	CommunicationRadius int

	// Seed feeds the placement generator.
	Seed int64
}

// Key returns the settings key "P S K;A C R;SEED".
func (p Params) Key() string {
	return fmt.Sprintf("%d %d %d;%d %d %d;%d",
		p.POIs, p.Sensors, p.Sinks,
		p.AreaSide, p.CoverageRadius, p.CommunicationRadius,
		p.Seed,
	)
}

// Validate checks that every node population is non-empty.
func (p Params) Validate() error {
	switch {
	case p.POIs <= 0:
		return apperror.NewWithField(apperror.CodeInvalidInstance, "instance has no POIs", "pois")
	case p.Sensors <= 0:
		return apperror.NewWithField(apperror.CodeInvalidInstance, "instance has no sensors", "sensors")
	case p.Sinks <= 0:
		return apperror.NewWithField(apperror.CodeInvalidInstance, "instance has no sinks", "sinks")
	case p.AreaSide < 0 || p.CoverageRadius < 0 || p.CommunicationRadius < 0:
		return apperror.New(apperror.CodeInvalidInstance, "geometry parameters must be non-negative").
			WithDetails("area_side", p.AreaSide).
			WithDetails("coverage_radius", p.CoverageRadius).
			WithDetails("communication_radius", p.CommunicationRadius)
	}
	return nil
}

// =============================================================================
// Instance
// =============================================================================

// Instance is the KCMC instance graph.
//
// Sets returned by the accessors are the instance's own storage and must be
// treated as read-only by callers.
type Instance struct {
	Params

	poiSensor    domain.Buckets[int, int]
	sensorSensor domain.Buckets[int, int]
	sensorSink   domain.Buckets[int, int]
	sinkSensor   domain.Buckets[int, int]

	splitOnce sync.Once
	split     *SplitGraph
}

func newInstance(p Params) *Instance {
	return &Instance{
		Params:       p,
		poiSensor:    domain.NewBuckets[int, int](),
		sensorSensor: domain.NewBuckets[int, int](),
		sensorSink:   domain.NewBuckets[int, int](),
		sinkSensor:   domain.NewBuckets[int, int](),
	}
}

// POICount returns the number of POIs.
func (in *Instance) POICount() int { return in.POIs }

// SensorCount returns the number of sensors.
func (in *Instance) SensorCount() int { return in.Sensors }

// SinkCount returns the number of sinks.
func (in *Instance) SinkCount() int { return in.Sinks }

// Covering returns the sensors covering a POI.
func (in *Instance) Covering(poi int) domain.Set[int] {
	return in.poiSensor.Get(poi)
}

// Neighbors returns the sensors a sensor communicates with.
func (in *Instance) Neighbors(sensor int) domain.Set[int] {
	return in.sensorSensor.Get(sensor)
}

// SinksOf returns the sinks a sensor communicates with.
func (in *Instance) SinksOf(sensor int) domain.Set[int] {
	return in.sensorSink.Get(sensor)
}

// SinkNeighbors returns the sensors communicating with a sink.
func (in *Instance) SinkNeighbors(sink int) domain.Set[int] {
	return in.sinkSensor.Get(sink)
}

// Covers reports whether sensor covers poi.
func (in *Instance) Covers(sensor, poi int) bool {
	return in.poiSensor.Has(poi, sensor)
}

// Linked reports whether two sensors communicate.
func (in *Instance) Linked(a, b int) bool {
	return in.sensorSensor.Has(a, b)
}

// IsSinkAdjacent reports whether a sensor reaches any sink directly.
func (in *Instance) IsSinkAdjacent(sensor int) bool {
	return in.sensorSink.HasKey(sensor)
}

// CoveringSensors returns every sensor that covers at least one POI.
func (in *Instance) CoveringSensors() domain.Set[int] {
	out := make(domain.Set[int])
	for poi := 0; poi < in.POIs; poi++ {
		out.Merge(in.poiSensor.Get(poi))
	}
	return out
}

// Invert returns the sensors in [0, Sensors) that are not in set. It turns
// an active set into an exclusion set and back.
func (in *Instance) Invert(set domain.Set[int]) domain.Set[int] {
	out := make(domain.Set[int], max(in.Sensors-len(set), 0))
	for s := 0; s < in.Sensors; s++ {
		if !set.Has(s) {
			out.Add(s)
		}
	}
	return out
}

// EdgeCounts returns the number of POI-Sensor, Sensor-Sensor (undirected)
// and Sensor-Sink edges.
func (in *Instance) EdgeCounts() (coverage, links, sinkLinks int) {
	return in.poiSensor.Pairs(), in.sensorSensor.Pairs() / 2, in.sensorSink.Pairs()
}

// CoverageProfile returns the active coverage of every POI under the given
// exclusion set, and how many POIs have any active coverage at all.
func (in *Instance) CoverageProfile(exclusion domain.Set[int]) ([]int, int) {
	profile := make([]int, in.POIs)
	covered := 0
	for poi := 0; poi < in.POIs; poi++ {
		profile[poi] = domain.CountMissing(in.poiSensor.Get(poi), exclusion)
		if profile[poi] > 0 {
			covered++
		}
	}
	return profile, covered
}

// DegreeProfile returns the active degree of every non-excluded sensor, and
// how many of them have at least one active neighbor. Excluded sensors
// report a degree of zero.
func (in *Instance) DegreeProfile(exclusion domain.Set[int]) ([]int, int) {
	profile := make([]int, in.Sensors)
	connected := 0
	for s := 0; s < in.Sensors; s++ {
		if exclusion.Has(s) {
			continue
		}
		profile[s] = domain.CountMissing(in.sensorSensor.Get(s), exclusion)
		if profile[s] > 0 {
			connected++
		}
	}
	return profile, connected
}

// =============================================================================
// Builder
// =============================================================================

// Builder assembles an instance edge by edge. It is used by the text parser
// and by callers that describe a topology by hand.
type Builder struct {
	in  *Instance
	err error
}

// NewBuilder starts an instance with the given parameters and no edges.
func NewBuilder(p Params) *Builder {
	b := &Builder{in: newInstance(p)}
	b.err = p.Validate()
	return b
}

// Cover adds a POI-Sensor coverage edge.
func (b *Builder) Cover(poi, sensor int) *Builder {
	if b.check("poi", poi, b.in.POIs) && b.check("sensor", sensor, b.in.Sensors) {
		b.in.poiSensor.Push(poi, sensor)
	}
	return b
}

// Link adds a symmetric Sensor-Sensor communication edge. Self links are ignored.
func (b *Builder) Link(a, c int) *Builder {
	if b.check("sensor", a, b.in.Sensors) && b.check("sensor", c, b.in.Sensors) && a != c {
		b.in.sensorSensor.Push(a, c)
		b.in.sensorSensor.Push(c, a)
	}
	return b
}

// LinkSink adds a symmetric Sensor-Sink communication edge.
func (b *Builder) LinkSink(sensor, sink int) *Builder {
	if b.check("sensor", sensor, b.in.Sensors) && b.check("sink", sink, b.in.Sinks) {
		b.in.sensorSink.Push(sensor, sink)
		b.in.sinkSensor.Push(sink, sensor)
	}
	return b
}

// Build returns the instance, or the first error met while building it.
func (b *Builder) Build() (*Instance, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.in, nil
}

func (b *Builder) check(kind string, id, limit int) bool {
	if b.err != nil {
		return false
	}
	if id < 0 || id >= limit {
		b.err = apperror.NewWithField(apperror.CodeInvalidInstance,
			fmt.Sprintf("%s id %d out of range [0, %d)", kind, id, limit), kind).
			WithDetails("id", id).
			WithDetails("limit", limit)
		return false
	}
	return true
}
