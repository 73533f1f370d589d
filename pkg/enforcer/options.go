package enforcer

// Option configures an Enforcer at construction time.
type Option func(*Enforcer)

// WithReservedMappingNames rejects construction when one of the model's
// role-mapping names (e.g. "g") collides with a built-in function name,
// instead of the default behavior of letting the built-in silently win.
func WithReservedMappingNames() Option {
	return func(e *Enforcer) { e.reserveMappingNames = true }
}
