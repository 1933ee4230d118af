package sensor

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Provider produces readings for a fixed, ordered set of sensor names.
type Provider interface {
	// Names returns every sensor name in registry order.
	Names() []string
	// Has reports whether name is a known sensor.
	Has(name string) bool
	// Produce builds a fresh reading for name, or returns ErrNotFound.
	Produce(name string) (*Reading, error)
}

// Registry is the built-in Provider backed by the simulated plant sensors.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	names []string
	index map[string]*definition
}

// Option configures a Registry.
type Option func(*Registry)

// WithRand sets the random source. Useful for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.rng = r
		}
	}
}

// WithSeed seeds the random source.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithClock overrides the time source used for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) {
		if now != nil {
			reg.now = now
		}
	}
}

// NewRegistry creates the registry of all simulated sensors.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:   time.Now,
		names: make([]string, 0, len(definitions)),
		index: make(map[string]*definition, len(definitions)),
	}
	for i := range definitions {
		d := &definitions[i]
		reg.names = append(reg.names, d.name)
		reg.index[d.name] = d
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Names returns a copy of the sensor names in registry order.
func (reg *Registry) Names() []string {
	out := make([]string, len(reg.names))
	copy(out, reg.names)
	return out
}

// Has reports whether name is registered.
func (reg *Registry) Has(name string) bool {
	_, ok := reg.index[name]
	return ok
}

// DeviceID returns the device id for name, or "" if unknown.
func (reg *Registry) DeviceID(name string) string {
	if d, ok := reg.index[name]; ok {
		return d.deviceID
	}
	return ""
}

// Produce builds a new reading for name.
func (reg *Registry) Produce(name string) (*Reading, error) {
	d, ok := reg.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	reg.mu.Lock()
	s := d.generate(reg.rng)
	reg.mu.Unlock()

	ts := reg.now().UTC().Format(time.RFC3339Nano)
	return &Reading{
		OpcUa:              opcUaNode(d.deviceID, d.displayName),
		EquipmentHierarchy: equipment(d.deviceID, d.line, d.area),
		SparkplugTopic:     sparkplugTopic(d.deviceID),
		SourceTimestamp:    ts,
		ServerTimestamp:    ts,
		Value:              s.value,
		DataQuality:        s.quality,
		OpcUaStatusCode:    StatusFor(s.quality),
		Unit:               UCUM(s.unit),
		SensorType:         d.sensorType,
		Description:        d.description,
		Properties:         map[string]any{},
	}, nil
}

// ProduceAll returns a reading for every sensor, keyed by name.
func (reg *Registry) ProduceAll() map[string]*Reading {
	out := make(map[string]*Reading, len(reg.names))
	for _, name := range reg.names {
		if r, err := reg.Produce(name); err == nil {
			out[name] = r
		}
	}
	return out
}

var _ Provider = (*Registry)(nil)
