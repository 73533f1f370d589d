// Package model loads and validates the INI-formatted model configuration
// that shapes one enforcer instance: its request/policy attribute layout,
// its policy-effect aggregation rule, its compiled matcher, and the names
// of its role-mapping relations. See pkg/iniconfig for the underlying file
// format and pkg/matcher for expression compilation.
package model

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/latticeauth/permengine/pkg/iniconfig"
	"github.com/latticeauth/permengine/pkg/matcher"
)

// PolicyEffect names one of the two supported effect-aggregation rules.
type PolicyEffect int

const (
	// EffectAllowOverride allows a request if any matched policy line has
	// eft == "allow"; with no matches, the request is denied.
	EffectAllowOverride PolicyEffect = iota
	// EffectDenyOverride allows a request unless some matched policy line
	// has eft == "deny"; with no matches, the request is allowed
	// (vacuously true).
	EffectDenyOverride
)

func (e PolicyEffect) String() string {
	if e == EffectDenyOverride {
		return "deny-override"
	}
	return "allow-override"
}

var (
	// ErrMissingSection is returned when a required model section is absent.
	ErrMissingSection = errors.New("model: missing required section")
	// ErrUnknownPolicyEffect is returned when the policy_effect expression
	// doesn't match either supported aggregation rule.
	ErrUnknownPolicyEffect = errors.New("model: unrecognized policy effect expression")
	// ErrFieldCount is returned when a request or policy value list doesn't
	// match its definition's field count.
	ErrFieldCount = errors.New("model: value count does not match field definition")
	// ErrInvalidRoleDefinition is returned when a role_definition value isn't
	// the literal "_,_" or "_,_,_" shape.
	ErrInvalidRoleDefinition = errors.New("model: invalid role definition")
	// ErrInvalidRequest is returned when a request value isn't a string or
	// a number.
	ErrInvalidRequest = errors.New("model: invalid request")
	// ErrInvalidPolicy is returned when a policy's eft value is neither
	// "allow" nor "deny".
	ErrInvalidPolicy = errors.New("model: invalid policy")
)

// eftFieldName is the implicit last attribute every policy definition
// carries, synthesized when a model's policy_definition line omits it
// (see "eft is implicit" in the config file format).
const eftFieldName = "eft"

// Definition is an ordered list of attribute names for a request or policy
// shape (e.g. "r = sub, obj, act" becomes Fields []string{"sub","obj","act"}).
type Definition struct {
	Name   string
	Fields []string
}

// RoleMapping is one named role-inheritance relation declared in a model's
// [role_definition] section (e.g. "g = _, _" or "g2 = _, _, _").
type RoleMapping struct {
	Name  string
	Arity int
}

// Model is a fully parsed and validated access-control model: its request
// and policy shapes, its effect rule, its compiled matcher, and its
// role-mapping declarations.
type Model struct {
	Request       Definition
	Policies      map[string]Definition
	PolicyOrder   []string
	EffectRaw     string
	Effect        PolicyEffect
	MatcherSource string
	Matcher       *matcher.Program
	RoleMappings  map[string]RoleMapping
	RoleOrder     []string
}

func splitFields(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Parse builds a Model from INI-formatted model source.
func Parse(data []byte) (*Model, error) {
	sections, err := iniconfig.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "model: parsing source")
	}
	return build(sections)
}

// Load builds a Model from an INI-formatted model file on disk.
func Load(path string) (*Model, error) {
	sections, err := iniconfig.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "model: loading file")
	}
	return build(sections)
}

func build(sections []iniconfig.Section) (*Model, error) {
	m := &Model{
		Policies:     map[string]Definition{},
		RoleMappings: map[string]RoleMapping{},
	}

	reqPairs := iniconfig.All(sections, "request_definition")
	if len(reqPairs) == 0 {
		return nil, errors.Wrap(ErrMissingSection, "request_definition")
	}
	m.Request = Definition{Name: reqPairs[0].Key, Fields: splitFields(reqPairs[0].Value)}

	polPairs := iniconfig.All(sections, "policy_definition")
	if len(polPairs) == 0 {
		return nil, errors.Wrap(ErrMissingSection, "policy_definition")
	}
	for _, p := range polPairs {
		fields := splitFields(p.Value)
		if !containsField(fields, eftFieldName) {
			fields = append(fields, eftFieldName)
		}
		m.Policies[p.Key] = Definition{Name: p.Key, Fields: fields}
		m.PolicyOrder = append(m.PolicyOrder, p.Key)
	}

	effectPairs := iniconfig.All(sections, "policy_effect")
	if len(effectPairs) == 0 {
		return nil, errors.Wrap(ErrMissingSection, "policy_effect")
	}
	m.EffectRaw = effectPairs[0].Value
	effect, err := parseEffect(m.EffectRaw)
	if err != nil {
		return nil, err
	}
	m.Effect = effect

	matcherPairs := iniconfig.All(sections, "matchers")
	if len(matcherPairs) == 0 {
		return nil, errors.Wrap(ErrMissingSection, "matchers")
	}
	m.MatcherSource = matcherPairs[0].Value
	prog, err := matcher.Compile(m.MatcherSource)
	if err != nil {
		return nil, errors.Wrap(err, "model: compiling matcher")
	}
	m.Matcher = prog

	for _, p := range iniconfig.All(sections, "role_definition") {
		fields := splitFields(p.Value)
		if !isUnderscoreShape(fields) {
			return nil, errors.Wrapf(ErrInvalidRoleDefinition, "%s = %s", p.Key, p.Value)
		}
		m.RoleMappings[p.Key] = RoleMapping{Name: p.Key, Arity: len(fields)}
		m.RoleOrder = append(m.RoleOrder, p.Key)
	}

	return m, nil
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// isUnderscoreShape reports whether fields is exactly ["_","_"] or
// ["_","_","_"], the only two role_definition shapes this engine supports.
func isUnderscoreShape(fields []string) bool {
	if len(fields) != 2 && len(fields) != 3 {
		return false
	}
	for _, f := range fields {
		if f != "_" {
			return false
		}
	}
	return true
}

// parseEffect recognizes the two effect expressions this engine supports:
//
//	some(where (p.eft == allow))          -> allow-override
//	!some(where (p.eft == deny))          -> deny-override
func parseEffect(raw string) (PolicyEffect, error) {
	normalized := strings.Join(strings.Fields(raw), " ")
	switch normalized {
	case "some(where (p.eft == allow))", "some(where(p.eft==allow))":
		return EffectAllowOverride, nil
	case "!some(where (p.eft == deny))", "!some(where(p.eft==deny))":
		return EffectDenyOverride, nil
	default:
		return 0, errors.Wrapf(ErrUnknownPolicyEffect, "%q", raw)
	}
}

// isStringOrNumber reports whether v is a string or a numeric value, the
// only two request-value types the matcher environment accepts.
func isStringOrNumber(v any) bool {
	switch v.(type) {
	case string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// CreateRequest builds the attribute record for an incoming request,
// binding values positionally to the model's request definition. Every
// value must be a string or a number.
func (m *Model) CreateRequest(values ...any) (matcher.Record, error) {
	if len(values) != len(m.Request.Fields) {
		return nil, errors.Wrapf(ErrFieldCount, "request expects %d fields, got %d", len(m.Request.Fields), len(values))
	}
	for i, v := range values {
		if !isStringOrNumber(v) {
			return nil, errors.Wrapf(ErrInvalidRequest, "field %q: %v", m.Request.Fields[i], v)
		}
	}
	rec := make(matcher.Record, len(values))
	for i, f := range m.Request.Fields {
		rec[f] = values[i]
	}
	return rec, nil
}

// CreatePolicy builds the attribute record for one policy line of the named
// policy definition ("p" for the common single-policy-type model), binding
// values positionally. values may carry one fewer entry than def.Fields, in
// which case the missing final eft value defaults to "allow"; if supplied,
// the final value must be "allow" or "deny".
func (m *Model) CreatePolicy(defName string, values ...string) (matcher.Record, error) {
	def, ok := m.Policies[defName]
	if !ok {
		return nil, errors.Wrapf(ErrMissingSection, "policy definition %q", defName)
	}
	switch len(values) {
	case len(def.Fields):
		// full line, validated below
	case len(def.Fields) - 1:
		values = append(append([]string(nil), values...), "allow")
	default:
		return nil, errors.Wrapf(ErrFieldCount, "policy %q expects %d or %d fields, got %d", defName, len(def.Fields)-1, len(def.Fields), len(values))
	}

	if eft := values[len(values)-1]; def.Fields[len(def.Fields)-1] == eftFieldName && eft != "allow" && eft != "deny" {
		return nil, errors.Wrapf(ErrInvalidPolicy, "invalid value for the eft attribute: %s", eft)
	}

	rec := make(matcher.Record, len(values))
	for i, f := range def.Fields {
		rec[f] = values[i]
	}
	return rec, nil
}

// HasPolicyKey reports whether key names an attribute of any policy
// definition this model declares.
func (m *Model) HasPolicyKey(key string) bool {
	for _, def := range m.Policies {
		for _, f := range def.Fields {
			if f == key {
				return true
			}
		}
	}
	return false
}

// HasRoleMapping reports whether name is a declared role-mapping relation.
func (m *Model) HasRoleMapping(name string) bool {
	_, ok := m.RoleMappings[name]
	return ok
}

// Match evaluates the model's compiled matcher against env and coerces the
// result with the matcher's truthiness rule.
func (m *Model) Match(env *matcher.Env) (bool, error) {
	return matcher.EvalBool(m.Matcher, env)
}

// Allow aggregates the eft values of every policy line whose matcher
// evaluation matched, according to the model's effect rule. An empty
// matchedEfts list denies under allow-override and allows under
// deny-override.
func (m *Model) Allow(matchedEfts []string) bool {
	switch m.Effect {
	case EffectDenyOverride:
		for _, eft := range matchedEfts {
			if eft == "deny" {
				return false
			}
		}
		return true
	default: // EffectAllowOverride
		for _, eft := range matchedEfts {
			if eft == "allow" {
				return true
			}
		}
		return false
	}
}
