package enforcer

import "github.com/pkg/errors"

var (
	// ErrAlreadyExists is returned when adding a policy or mapping line
	// structurally identical to one already present.
	ErrAlreadyExists = errors.New("enforcer: policy already exists")
	// ErrNonexistent is returned when removing a policy or role-mapping
	// line that isn't present.
	ErrNonexistent = errors.New("enforcer: policy does not exist")
	// ErrMappingNotFound is returned when an operation references a
	// mapping name the model does not declare.
	ErrMappingNotFound = errors.New("enforcer: role mapping not found")
	// ErrNoAdapter is returned by SavePolicies when the enforcer was
	// constructed without a persistence adapter.
	ErrNoAdapter = errors.New("enforcer: no adapter configured")
	// ErrNotInitialized is returned by the load operations when no adapter
	// and no file have ever been configured.
	ErrNotInitialized = errors.New("enforcer: no adapter set and no policy file provided")
	// ErrReservedFunctionName is returned at construction time when
	// WithReservedMappingNames is set and a model's role-mapping name
	// collides with a built-in function name.
	ErrReservedFunctionName = errors.New("enforcer: role mapping name collides with a built-in function")
)
