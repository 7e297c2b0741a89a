package scheduler

// Descriptor is an opaque description of one unit. Only the UnitFactory
// interprets it.
type Descriptor = any

// LoadableUnit is one injectable piece of content.
//
// Attach attempts to put the unit on the page. As a result, directly or
// indirectly, synchronously or later, exactly one of "appended.<id>",
// "loaded.<id>" or "ignored.<id>" must be published on the owning
// scheduler's bus (an appended unit later also publishes "loaded.<id>").
// An ineligible unit publishes "ignored.<id>" and nothing else. A unit that
// never reports stalls the queue; the scheduler cannot detect this.
type LoadableUnit interface {
	ID() string
	Attach()
}

// UnitFactory materialises a LoadableUnit from a descriptor, bound to the
// scheduler that dispatched it.
type UnitFactory interface {
	Create(desc Descriptor, s *Scheduler) LoadableUnit
}

// FactoryFunc adapts a function to UnitFactory.
type FactoryFunc func(desc Descriptor, s *Scheduler) LoadableUnit

// Create calls f(desc, s).
func (f FactoryFunc) Create(desc Descriptor, s *Scheduler) LoadableUnit {
	return f(desc, s)
}
