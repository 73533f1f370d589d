// Package enforcer assembles a model, a role-inheritance graph per
// role-mapping relation, the built-in matcher functions, and an optional
// persistence adapter into the single object a caller asks "is this
// request allowed?".
package enforcer

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/latticeauth/permengine/internal/logging"
	"github.com/latticeauth/permengine/pkg/adapter"
	"github.com/latticeauth/permengine/pkg/builtin"
	"github.com/latticeauth/permengine/pkg/matcher"
	"github.com/latticeauth/permengine/pkg/model"
	"github.com/latticeauth/permengine/pkg/rolegraph"
)

var log = logging.Get("enforcer")

// Enforcer evaluates requests against a model, its policy lines, and its
// role-inheritance graphs. The zero value is not usable; construct one with
// [New], [NewWithFile], or [NewWithAdapter].
type Enforcer struct {
	model               *model.Model
	policies            map[string][]adapter.Line
	roleGroups          map[string]*rolegraph.RoleGroup
	userFuncs           map[string]matcher.Func
	adapter             adapter.Adapter
	reserveMappingNames bool
}

func newEnforcer(m *model.Model, a adapter.Adapter, opts []Option) (*Enforcer, error) {
	e := &Enforcer{
		model:      m,
		policies:   map[string][]adapter.Line{},
		roleGroups: map[string]*rolegraph.RoleGroup{},
		userFuncs:  map[string]matcher.Func{},
		adapter:    a,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.reserveMappingNames {
		builtins := builtin.Funcs()
		for name := range m.RoleMappings {
			if _, collides := builtins[name]; collides {
				return nil, errors.Wrapf(ErrReservedFunctionName, "%q", name)
			}
		}
	}

	for name := range m.RoleMappings {
		e.roleGroups[name] = rolegraph.New(name)
	}

	if a != nil {
		lines, err := a.LoadPolicies()
		if err != nil {
			return nil, errors.Wrap(err, "enforcer: loading policies")
		}
		if err := e.loadPolicyLines(lines); err != nil {
			return nil, err
		}
	}

	log.Infof("construct", "enforcer ready: policy_defs=%d role_mappings=%d", len(m.Policies), len(m.RoleMappings))
	return e, nil
}

// loadPolicyLines merges lines into the in-memory policy and role-mapping
// sets, skipping any line whose first field isn't a declared policy
// definition or role-mapping name, and silently skipping lines that
// structurally duplicate one already present.
func (e *Enforcer) loadPolicyLines(lines []adapter.Line) error {
	for _, l := range lines {
		if _, isPolicy := e.model.Policies[l.Type]; isPolicy {
			if _, exists := containsLine(e.policies[l.Type], l); exists {
				continue
			}
			e.policies[l.Type] = append(e.policies[l.Type], l)
			continue
		}
		if err := e.loadMappingLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) loadMappingLine(l adapter.Line) error {
	rg, isMapping := e.roleGroups[l.Type]
	if !isMapping {
		return nil
	}
	if _, exists := containsLine(e.policies[l.Type], l); exists {
		return nil
	}
	arity := e.model.RoleMappings[l.Type].Arity
	if err := applyMappingLine(rg, arity, l.Values); err != nil {
		return err
	}
	e.policies[l.Type] = append(e.policies[l.Type], l)
	return nil
}

func applyMappingLine(rg *rolegraph.RoleGroup, arity int, values []string) error {
	switch arity {
	case 2:
		if len(values) != 2 {
			return errors.Errorf("enforcer: role mapping %q expects 2 values, got %d", rg.Name(), len(values))
		}
		return rg.AddInheritance(values[0], values[1])
	case 3:
		if len(values) != 3 {
			return errors.Errorf("enforcer: role mapping %q expects 3 values, got %d", rg.Name(), len(values))
		}
		return rg.AddInheritance(rolegraph.Qualify(values[0], values[2]), rolegraph.Qualify(values[1], values[2]))
	default:
		return errors.Errorf("enforcer: unsupported role mapping arity %d", arity)
	}
}

// New constructs an Enforcer with no persistence adapter ("readonly, no
// backing file"): policies can be added and checked in memory, and
// SavePolicies fails with ErrNoAdapter until SetPersistAdapter or
// LoadPoliciesFromFile installs an adapter.
func New(m *model.Model, opts ...Option) (*Enforcer, error) {
	return newEnforcer(m, nil, opts)
}

// NewWithFile constructs an Enforcer backed by a CSV file adapter, loading
// whatever policies and role mappings are already persisted at path.
func NewWithFile(m *model.Model, path string, opts ...Option) (*Enforcer, error) {
	return newEnforcer(m, adapter.NewFileAdapter(path), opts)
}

// NewWithAdapter constructs an Enforcer backed by a caller-supplied
// persistence adapter.
func NewWithAdapter(m *model.Model, a adapter.Adapter, opts ...Option) (*Enforcer, error) {
	return newEnforcer(m, a, opts)
}

// Model returns the enforcer's underlying model.
func (e *Enforcer) Model() *model.Model { return e.model }

// RoleGroup returns the role-inheritance graph backing the named mapping
// relation, or nil if name isn't declared by the model. Exposed mainly for
// introspection and tests.
func (e *Enforcer) RoleGroup(name string) *rolegraph.RoleGroup {
	return e.roleGroups[name]
}

// MappingStub returns the matcher-callable stub function for the named
// role-mapping relation (2-arg or 3-arg, depending on the model's
// declaration), or nil if name isn't declared.
func (e *Enforcer) MappingStub(name string) matcher.Func {
	rg, ok := e.roleGroups[name]
	if !ok {
		return nil
	}
	if mapping, ok := e.model.RoleMappings[name]; ok && mapping.Arity == 3 {
		return matcher.Func(rolegraph.ThreeArgStub(rg))
	}
	return matcher.Func(rolegraph.TwoArgStub(rg))
}

// AddFunction registers a callable usable from matcher expressions. A
// built-in function of the same name always takes precedence, regardless
// of registration order.
func (e *Enforcer) AddFunction(name string, fn matcher.Func) {
	e.userFuncs[name] = fn
}

func (e *Enforcer) buildFuncEnv() map[string]matcher.Func {
	funcs := make(map[string]matcher.Func, len(e.userFuncs)+len(e.roleGroups)*2+9)
	for name, fn := range e.userFuncs {
		funcs[name] = fn
	}
	for name, rg := range e.roleGroups {
		if mapping, ok := e.model.RoleMappings[name]; ok && mapping.Arity == 3 {
			funcs[name] = matcher.Func(rolegraph.ThreeArgStub(rg))
		} else {
			funcs[name] = matcher.Func(rolegraph.TwoArgStub(rg))
		}
	}
	for name, fn := range builtin.Funcs() {
		funcs[name] = fn
	}
	return funcs
}

func lineFromValues(defName string, values []string) adapter.Line {
	return adapter.Line{Type: defName, Values: values}
}

func containsLine(lines []adapter.Line, candidate adapter.Line) (int, bool) {
	for i, l := range lines {
		if l.Type != candidate.Type || len(l.Values) != len(candidate.Values) {
			continue
		}
		match := true
		for j := range l.Values {
			if l.Values[j] != candidate.Values[j] {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return -1, false
}

// AddPolicy appends one policy line of the named definition, deduplicating
// on structural equality; it returns ErrAlreadyExists if an identical line
// is already present.
func (e *Enforcer) AddPolicy(defName string, values ...string) error {
	if _, err := e.model.CreatePolicy(defName, values...); err != nil {
		return err
	}
	line := lineFromValues(defName, values)
	if _, exists := containsLine(e.policies[defName], line); exists {
		return errors.Wrapf(ErrAlreadyExists, "%s%v", defName, values)
	}
	e.policies[defName] = append(e.policies[defName], line)
	if e.adapter != nil {
		if err := e.adapter.AddPolicy(line); err != nil {
			return errors.Wrap(err, "enforcer: persisting policy")
		}
	}
	return nil
}

// RemovePolicy removes one policy line structurally equal to values; it
// returns ErrNonexistent if no such line is present.
func (e *Enforcer) RemovePolicy(defName string, values ...string) error {
	line := lineFromValues(defName, values)
	idx, exists := containsLine(e.policies[defName], line)
	if !exists {
		return errors.Wrapf(ErrNonexistent, "%s%v", defName, values)
	}
	e.policies[defName] = append(e.policies[defName][:idx], e.policies[defName][idx+1:]...)
	if e.adapter != nil {
		if err := e.adapter.RemovePolicy(line); err != nil {
			return errors.Wrap(err, "enforcer: persisting removal")
		}
	}
	return nil
}

// RemoveFilteredPolicy removes every policy line of defName whose value at
// fieldIndex is one of values, returning the number removed.
func (e *Enforcer) RemoveFilteredPolicy(defName string, fieldIndex int, values ...string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}

	var kept []adapter.Line
	removed := 0
	for _, l := range e.policies[defName] {
		if fieldIndex >= 0 && fieldIndex < len(l.Values) && want[l.Values[fieldIndex]] {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	e.policies[defName] = kept

	if e.adapter != nil && removed > 0 {
		if err := e.adapter.RemoveFilteredPolicy(defName, fieldIndex, values...); err != nil {
			return removed, errors.Wrap(err, "enforcer: persisting filtered removal")
		}
	}
	return removed, nil
}

// ListPolicies returns the value rows of every policy line of defName
// matching criteria, a map from attribute name (or the pseudo-attribute
// "key", matching the definition's first field) to required value. An
// empty criteria returns every line.
func (e *Enforcer) ListPolicies(defName string, criteria map[string]string) ([][]string, error) {
	def, ok := e.model.Policies[defName]
	if !ok {
		return nil, errors.Wrapf(model.ErrMissingSection, "policy definition %q", defName)
	}

	indices := make(map[string]int, len(def.Fields))
	for i, f := range def.Fields {
		indices[f] = i
	}

	var out [][]string
	for _, l := range e.policies[defName] {
		if matchesCriteria(l.Values, indices, criteria) {
			out = append(out, append([]string(nil), l.Values...))
		}
	}
	return out, nil
}

func matchesCriteria(values []string, indices map[string]int, criteria map[string]string) bool {
	for key, want := range criteria {
		idx, ok := indices[key]
		if key == "key" {
			idx, ok = 0, len(values) > 0
		}
		if !ok || idx >= len(values) || values[idx] != want {
			return false
		}
	}
	return true
}

// AddMappingPolicy adds one role-inheritance line to the named mapping
// relation (e.g. "g"), updating both the in-memory role graph and the
// adapter if one is configured.
func (e *Enforcer) AddMappingPolicy(mappingName string, values ...string) error {
	rg, ok := e.roleGroups[mappingName]
	if !ok {
		return errors.Wrapf(ErrMappingNotFound, "%q", mappingName)
	}
	arity := e.model.RoleMappings[mappingName].Arity
	line := lineFromValues(mappingName, values)
	if _, exists := containsLine(e.policies[mappingName], line); exists {
		return errors.Wrapf(ErrAlreadyExists, "%s%v", mappingName, values)
	}
	if err := applyMappingLine(rg, arity, values); err != nil {
		return err
	}
	e.policies[mappingName] = append(e.policies[mappingName], line)
	if e.adapter != nil {
		if err := e.adapter.AddPolicy(line); err != nil {
			return errors.Wrap(err, "enforcer: persisting role mapping")
		}
	}
	return nil
}

// RemoveMappingPolicy removes one role-inheritance line from the named
// mapping relation; it returns ErrMappingNotFound if mappingName is
// undeclared, or ErrNonexistent if the line isn't present.
func (e *Enforcer) RemoveMappingPolicy(mappingName string, values ...string) error {
	rg, ok := e.roleGroups[mappingName]
	if !ok {
		return errors.Wrapf(ErrMappingNotFound, "%q", mappingName)
	}
	line := lineFromValues(mappingName, values)
	idx, exists := containsLine(e.policies[mappingName], line)
	if !exists {
		return errors.Wrapf(ErrNonexistent, "%s%v", mappingName, values)
	}
	arity := e.model.RoleMappings[mappingName].Arity
	switch arity {
	case 2:
		if err := rg.RemoveInheritance(values[0], values[1]); err != nil {
			return err
		}
	case 3:
		if err := rg.RemoveInheritance(rolegraph.Qualify(values[0], values[2]), rolegraph.Qualify(values[1], values[2])); err != nil {
			return err
		}
	}
	e.policies[mappingName] = append(e.policies[mappingName][:idx], e.policies[mappingName][idx+1:]...)
	if e.adapter != nil {
		if err := e.adapter.RemovePolicy(line); err != nil {
			return errors.Wrap(err, "enforcer: persisting role mapping removal")
		}
	}
	return nil
}

// SavePolicies persists every in-memory policy and role-mapping line via
// the configured adapter; it returns ErrNoAdapter if none was configured.
func (e *Enforcer) SavePolicies() error {
	if e.adapter == nil {
		return ErrNoAdapter
	}
	var all []adapter.Line
	for _, defName := range e.model.PolicyOrder {
		all = append(all, e.policies[defName]...)
	}
	for _, name := range e.model.RoleOrder {
		all = append(all, e.policies[name]...)
	}
	return e.adapter.SavePolicies(all)
}

// SetPersistAdapter installs a, transitioning the enforcer into the
// external-adapter state. It does not itself reload anything; call
// LoadPolicies afterward to pull in a's existing lines.
func (e *Enforcer) SetPersistAdapter(a adapter.Adapter) {
	e.adapter = a
}

// LoadPolicies reloads every policy and role-mapping line from the
// currently configured adapter, merging them into memory (duplicates of
// lines already present are skipped). It returns ErrNotInitialized when no
// adapter is configured.
func (e *Enforcer) LoadPolicies() error {
	if e.adapter == nil {
		return ErrNotInitialized
	}
	lines, err := e.adapter.LoadPolicies()
	if err != nil {
		return errors.Wrap(err, "enforcer: loading policies")
	}
	return e.loadPolicyLines(lines)
}

// LoadPoliciesFromFile transitions the enforcer into the readonly-with-file
// adapter state backed by path, then loads from it.
func (e *Enforcer) LoadPoliciesFromFile(path string) error {
	e.adapter = adapter.NewFileAdapter(path)
	return e.LoadPolicies()
}

// LoadMappingPolicies bulk-loads role-mapping tuples from the currently
// configured adapter, keeping only lines whose first field is a declared
// role-mapping name; duplicates already present are silently skipped, and
// any other error (an inheritance edge the role graph rejects) propagates.
func (e *Enforcer) LoadMappingPolicies() error {
	if e.adapter == nil {
		return ErrNotInitialized
	}
	lines, err := e.adapter.LoadPolicies()
	if err != nil {
		return errors.Wrap(err, "enforcer: loading mapping policies")
	}
	return e.loadMappingLinesOnly(lines)
}

// LoadMappingPoliciesFromFile is LoadMappingPolicies reading from path
// instead of the configured adapter, without changing the adapter field.
func (e *Enforcer) LoadMappingPoliciesFromFile(path string) error {
	lines, err := adapter.NewFileAdapter(path).LoadPolicies()
	if err != nil {
		return errors.Wrap(err, "enforcer: loading mapping policies")
	}
	return e.loadMappingLinesOnly(lines)
}

func (e *Enforcer) loadMappingLinesOnly(lines []adapter.Line) error {
	for _, l := range lines {
		if _, isMapping := e.roleGroups[l.Type]; !isMapping {
			continue
		}
		if err := e.loadMappingLine(l); err != nil {
			return err
		}
	}
	return nil
}

// LoadFilteredPolicies bulk-loads from the configured adapter, keeping only
// lines matching every field-tag criterion in filter ("ptype" for the line
// type, "v0".."v6" for positional values), and merges the survivors into
// memory.
func (e *Enforcer) LoadFilteredPolicies(filter map[string]string) error {
	if e.adapter == nil {
		return ErrNotInitialized
	}
	lines, err := e.adapter.LoadPolicies()
	if err != nil {
		return errors.Wrap(err, "enforcer: loading filtered policies")
	}
	var matched []adapter.Line
	for _, l := range lines {
		if matchesFieldTags(l, filter) {
			matched = append(matched, l)
		}
	}
	return e.loadPolicyLines(matched)
}

// ListMappingPolicies returns the value rows of every role-mapping line of
// mappingName matching criteria (field tags "ptype"/"v0".."v6"); an empty
// criteria returns every line.
func (e *Enforcer) ListMappingPolicies(mappingName string, criteria map[string]string) ([][]string, error) {
	if _, ok := e.roleGroups[mappingName]; !ok {
		return nil, errors.Wrapf(ErrMappingNotFound, "%q", mappingName)
	}
	var out [][]string
	for _, l := range e.policies[mappingName] {
		if matchesFieldTags(l, criteria) {
			out = append(out, append([]string(nil), l.Values...))
		}
	}
	return out, nil
}

func matchesFieldTags(l adapter.Line, filter map[string]string) bool {
	for tag, want := range filter {
		if tag == "ptype" {
			if l.Type != want {
				return false
			}
			continue
		}
		idx, ok := fieldTagIndex(tag)
		if !ok || idx >= len(l.Values) || l.Values[idx] != want {
			return false
		}
	}
	return true
}

func fieldTagIndex(tag string) (int, bool) {
	if len(tag) < 2 || tag[0] != 'v' {
		return 0, false
	}
	n, err := strconv.Atoi(tag[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ResetConfiguration replaces the enforcer's model, rebuilding an empty
// role group per the new model's declared mappings and reloading every
// policy and role-mapping line from the currently configured adapter (if
// any). The adapter and any user-registered functions are preserved.
func (e *Enforcer) ResetConfiguration(m *model.Model) error {
	e.model = m
	e.roleGroups = map[string]*rolegraph.RoleGroup{}
	e.policies = map[string][]adapter.Line{}
	for name := range m.RoleMappings {
		e.roleGroups[name] = rolegraph.New(name)
	}
	if e.adapter == nil {
		return nil
	}
	lines, err := e.adapter.LoadPolicies()
	if err != nil {
		return errors.Wrap(err, "enforcer: loading policies")
	}
	return e.loadPolicyLines(lines)
}

// Allow evaluates request against every line of the named policy
// definition and aggregates the result per the model's effect rule.
func (e *Enforcer) Allow(defName string, requestValues ...any) (bool, error) {
	req, err := e.model.CreateRequest(requestValues...)
	if err != nil {
		return false, err
	}

	env := &matcher.Env{
		Vars:  matcher.Record{"r": req},
		Funcs: e.buildFuncEnv(),
	}

	var matchedEfts []string
	for _, l := range e.policies[defName] {
		pol, err := e.model.CreatePolicy(defName, l.Values...)
		if err != nil {
			return false, err
		}
		env.Vars["p"] = pol

		matched, err := e.model.Match(env)
		if err != nil {
			log.Debugf("allow", "def=%s policy=%v matcher eval error treated as non-match: %v", defName, l.Values, err)
			continue
		}
		if !matched {
			continue
		}
		eft, ok := pol["eft"].(string)
		if !ok {
			eft = "allow"
		}
		matchedEfts = append(matchedEfts, eft)
	}

	allowed := e.model.Allow(matchedEfts)
	log.Debugf("allow", "def=%s allowed=%t matched=%d", defName, allowed, len(matchedEfts))
	return allowed, nil
}
