package unit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/scheduler"
)

// Factory turns Descriptors into Units rendered into one host document.
// It implements scheduler.UnitFactory.
type Factory struct {
	doc      Injector
	deferrer bus.Deferrer
	pred     Predicate
	registry *Registry
	busOpts  []bus.Option
	logger   *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithPredicate sets the predicate match conditions are checked with.
// Without one every unit is eligible.
func WithPredicate(p Predicate) FactoryOption {
	return func(f *Factory) {
		f.pred = p
	}
}

// WithRegistry shares a unit registry between factories. Default: a new
// registry per factory.
func WithRegistry(r *Registry) FactoryOption {
	return func(f *Factory) {
		if r != nil {
			f.registry = r
		}
	}
}

// WithBusOptions passes bus options to the schedulers this factory creates
// for html fragments containing scripts.
func WithBusOptions(opts ...bus.Option) FactoryOption {
	return func(f *Factory) {
		f.busOpts = append(f.busOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a Factory rendering into doc. d is the deferrer nested
// schedulers are built on; it should be the one the parent schedulers use.
func NewFactory(doc Injector, d bus.Deferrer, opts ...FactoryOption) *Factory {
	f := &Factory{
		doc:      doc,
		deferrer: d,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the registry units are recorded in.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// Create builds a Unit for desc, which must be a Descriptor or *Descriptor.
// Anything else yields a unit without a kind, which is always ignored.
func (f *Factory) Create(desc scheduler.Descriptor, s *scheduler.Scheduler) scheduler.LoadableUnit {
	var d Descriptor
	switch v := desc.(type) {
	case Descriptor:
		d = v
	case *Descriptor:
		if v != nil {
			d = *v
		}
	default:
		f.logger.Warn("unsupported descriptor", "type", fmt.Sprintf("%T", desc))
		d = Descriptor{}
	}

	u := &Unit{
		kind:      d.Type,
		requested: d.ID,
		desc:      d,
		f:         f,
		s:         s,
	}
	f.registry.add(u, d.ID)
	u.desc.ID = u.id

	return u
}

func (f *Factory) allow(conds []match.Condition) bool {
	if f.pred == nil || len(conds) == 0 {
		return true
	}
	return f.pred.Allow(conds)
}
