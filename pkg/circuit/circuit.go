// Package circuit implements the GPAC circuit algebra: a named directed
// multigraph of constant, addition, product and integration gates together
// with the rewrites (normalization, simplification) and the value
// propagation that turn it into a polynomial initial-value problem.
package circuit

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
	"github.com/flebeau/GPAClib/pkg/util"
)

// Circuit owns its gates exclusively. Binary gates reference their inputs by
// name; a reference is valid when it names another gate of the circuit or
// the reserved pseudo-gate "t". The values table doubles as the initial
// value store for integration gates and as the cache used during value
// propagation.
type Circuit struct {
	name       string
	gates      map[string]*gate.Gate
	output     string
	values     map[string]float64
	validation bool
	block      bool
	finalized  bool
	intGates   []string
	gateID     int
}

func New(name string) *Circuit {
	return NewWithOptions(name, true, false)
}

// NewWithOptions creates an empty circuit. With validation off, gate names
// are only checked during Validate, which is how the parser loads circuits
// containing generated "_k" names. Block circuits are builtin library
// circuits; their name is preserved by Clone.
func NewWithOptions(name string, validation, block bool) *Circuit {
	return &Circuit{
		name:       name,
		gates:      make(map[string]*gate.Gate),
		values:     make(map[string]float64),
		validation: validation,
		block:      block,
	}
}

func (c *Circuit) Name() string     { return c.name }
func (c *Circuit) Output() string   { return c.output }
func (c *Circuit) Block() bool      { return c.block }
func (c *Circuit) Validation() bool { return c.validation }
func (c *Circuit) Finalized() bool  { return c.finalized }

func (c *Circuit) Rename(name string) { c.name = name }

func (c *Circuit) SetOutput(output string) {
	if c.output != output {
		c.finalized = false
	}
	c.output = output
}

func (c *Circuit) Has(name string) bool {
	_, ok := c.gates[name]
	return ok
}

// Gate returns the named gate, or nil if absent. The returned pointer is
// owned by the circuit; callers must not mutate it.
func (c *Circuit) Gate(name string) *gate.Gate {
	return c.gates[name]
}

func (c *Circuit) Size() int { return len(c.gates) }

// GateNames returns the gate names in lexicographic order. All iteration in
// the rewrite passes goes through this so that their results are
// reproducible.
func (c *Circuit) GateNames() []string {
	names := make([]string, 0, len(c.gates))
	for name := range c.gates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Circuit) IsKind(name string, k gate.Kind) bool {
	g, ok := c.gates[name]
	return ok && g.Kind == k
}

// IntGates is the ordered state vector of a finalized circuit; nil before
// Finalize.
func (c *Circuit) IntGates() []string { return c.intGates }

func (c *Circuit) errLocation() string {
	if c.name == "" {
		return "circuit <unnamed>"
	}
	return "circuit " + c.name
}

/* ===== Gate insertion ===== */

// validateGateName applies the user-facing naming rules. Generated names
// (leading underscore) are only allowed when forbidUnderscore is false.
func (c *Circuit) validateGateName(name string, forbidUnderscore bool) error {
	if len(name) == 0 {
		return errors.Errorf("%s: gate name cannot be empty", c.errLocation())
	}
	if name[0] == '_' && forbidUnderscore {
		return errors.Errorf("%s: gate names starting with an underscore are reserved", c.errLocation())
	}
	if name == gate.Time {
		return errors.Errorf("%s: cannot name a gate %q, it is reserved", c.errLocation(), gate.Time)
	}
	return nil
}

// bumpCounter advances the fresh-name counter past name when it has the
// generated form "_<k>", so that loaded circuits compose with fresh ones.
func (c *Circuit) bumpCounter(name string) {
	if !strings.HasPrefix(name, "_") {
		return
	}
	k, err := strconv.Atoi(name[1:])
	if err != nil || k <= c.gateID {
		return
	}
	c.gateID = k
}

// NewGateName mints a fresh generated name "_<k>" from the circuit's
// monotone counter.
func (c *Circuit) NewGateName() string {
	c.gateID++
	return "_" + strconv.Itoa(c.gateID)
}

// addGate inserts g under name, minting a fresh name when name is empty.
// With validate set and circuit validation on, the naming rules apply and an
// integration gate whose variable input is an existing constant gate is
// rejected. Inserting over an existing name overwrites it with a warning.
func (c *Circuit) addGate(name string, g *gate.Gate, validate bool) (string, error) {
	c.finalized = false
	if name == "" {
		name = c.NewGateName()
	} else if c.validation && validate {
		if err := c.validateGateName(name, true); err != nil {
			return "", err
		}
	}
	if c.validation && validate && g.Kind == gate.Int && c.IsKind(g.Y, gate.Constant) {
		return "", errors.Errorf("%s: gate %q is an integration gate with a constant second input", c.errLocation(), name)
	}
	if _, exists := c.gates[name]; exists {
		util.Warnf(c.errLocation(), "gate %q already exists, adding it again overwrites it", name)
	}
	c.gates[name] = g
	c.bumpCounter(name)
	return name, nil
}

// AddConstantGate adds a constant gate. An empty name requests a generated
// one; the name actually used is returned.
func (c *Circuit) AddConstantGate(name string, value float64) (string, error) {
	return c.addGate(name, gate.NewConstant(value), true)
}

func (c *Circuit) AddAddGate(name, x, y string) (string, error) {
	return c.addGate(name, gate.NewAdd(x, y), true)
}

func (c *Circuit) AddProdGate(name, x, y string) (string, error) {
	return c.addGate(name, gate.NewProd(x, y), true)
}

// AddIntGate adds the integration gate "int x d(y)".
func (c *Circuit) AddIntGate(name, x, y string) (string, error) {
	return c.addGate(name, gate.NewInt(x, y), true)
}

// EraseGate removes a gate and its cached value. Removing a gate other
// gates still reference leaves the circuit invalid until Validate.
func (c *Circuit) EraseGate(name string) {
	if _, ok := c.gates[name]; !ok {
		return
	}
	delete(c.gates, name)
	delete(c.values, name)
	c.finalized = false
}

// RenameGate moves a gate to a new name, carrying its initial value along
// and fixing up the output. Inputs referencing the old name are not
// rewritten; pair with RenameInputs for a full rename.
func (c *Circuit) RenameGate(oldName, newName string) error {
	g, ok := c.gates[oldName]
	if !ok {
		return errors.Errorf("%s: cannot rename unknown gate %q", c.errLocation(), oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := c.gates[newName]; exists {
		util.Warnf(c.errLocation(), "gate %q already exists, renaming %q onto it overwrites it", newName, oldName)
	}
	c.gates[newName] = g
	delete(c.gates, oldName)
	if v, ok := c.values[oldName]; ok {
		delete(c.values, oldName)
		c.values[newName] = v
	}
	if c.output == oldName {
		c.output = newName
	}
	c.bumpCounter(newName)
	c.finalized = false
	return nil
}

// RenameInputs rewrites every binary-gate input equal to oldName into
// newName.
func (c *Circuit) RenameInputs(oldName, newName string) {
	for _, g := range c.gates {
		if !g.Binary() {
			continue
		}
		if g.X == oldName {
			g.X = newName
		}
		if g.Y == oldName {
			g.Y = newName
		}
	}
	c.finalized = false
}

/* ===== Initial values ===== */

// SetInitValue records the initial value of an integration gate. Setting a
// value on any other kind is refused.
func (c *Circuit) SetInitValue(name string, value float64) error {
	if !c.IsKind(name, gate.Int) {
		return errors.Errorf("%s: can only set an initial value on an integration gate, %q is not one", c.errLocation(), name)
	}
	if v, ok := c.values[name]; !ok || v != value {
		c.finalized = false
	}
	c.values[name] = value
	return nil
}

// InitValue returns the initial value attached to an integration gate.
func (c *Circuit) InitValue(name string) (float64, bool) {
	if !c.IsKind(name, gate.Int) {
		return 0, false
	}
	v, ok := c.values[name]
	return v, ok
}

// Values exposes the value table (initial values plus whatever the last
// propagation cached). The map is live; callers treat it as read-only.
func (c *Circuit) Values() map[string]float64 { return c.values }

// Value returns the cached value of a gate after a propagation pass.
func (c *Circuit) Value(name string) (float64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// ImportValues merges initial values for integration gates present in the
// circuit; entries for other names are ignored.
func (c *Circuit) ImportValues(values map[string]float64) {
	for name, v := range values {
		if c.IsKind(name, gate.Int) {
			c.values[name] = v
			c.finalized = false
		}
	}
}

/* ===== Copying ===== */

// Clone duplicates the circuit. Following the reference semantics, a
// non-block circuit's name gains a trailing underscore so that copies are
// distinguishable; block (builtin) circuits keep their name.
func (c *Circuit) Clone() *Circuit {
	name := c.name
	if !c.block && name != "" {
		name += "_"
	}
	res := NewWithOptions(name, c.validation, c.block)
	res.CopyFrom(c)
	res.output = c.output
	res.gateID = c.gateID
	return res
}

// CopyFrom imports every gate of src, along with the initial values of its
// integration gates. Existing gates with the same names are overwritten
// silently; callers ensure name-disjointness first when that matters.
func (c *Circuit) CopyFrom(src *Circuit) {
	for _, name := range src.GateNames() {
		g := src.gates[name]
		c.gates[name] = g.Clone()
		c.bumpCounter(name)
		if g.Kind == gate.Int {
			if v, ok := src.values[name]; ok {
				c.values[name] = v
			}
		}
	}
	c.finalized = false
}

// EnsureUniqueNames renames every gate of c that collides with a gate name
// of other to a fresh generated name, rewriting inputs, initial values and
// the output accordingly. The counter is first advanced past all generated
// names of other so that the minted names are free on both sides.
func (c *Circuit) EnsureUniqueNames(other *Circuit) {
	for name := range other.gates {
		c.bumpCounter(name)
	}
	renames := make(map[string]string)
	for _, name := range c.GateNames() {
		if other.Has(name) {
			renames[name] = c.NewGateName()
		}
	}
	for _, oldName := range sortedKeys(renames) {
		newName := renames[oldName]
		c.gates[newName] = c.gates[oldName]
		delete(c.gates, oldName)
		if v, ok := c.values[oldName]; ok {
			delete(c.values, oldName)
			c.values[newName] = v
		}
	}
	if newName, ok := renames[c.output]; ok {
		c.output = newName
	}
	for _, g := range c.gates {
		if !g.Binary() {
			continue
		}
		if newName, ok := renames[g.X]; ok {
			g.X = newName
		}
		if newName, ok := renames[g.Y]; ok {
			g.Y = newName
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

/* ===== Validation ===== */

// Validate checks structural correctness: gate names (relaxed rules when
// insertion-time validation was off), input references, normalized
// integration gates and a usable output.
func (c *Circuit) Validate() error {
	if c.finalized {
		return nil
	}
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if !c.validation {
			if err := c.validateGateName(name, false); err != nil {
				return err
			}
		}
		if !g.Binary() {
			continue
		}
		if (g.X != gate.Time && !c.Has(g.X)) || (g.Y != gate.Time && !c.Has(g.Y)) {
			return errors.Errorf("%s: gate %q has an input which is neither t nor a gate of the circuit", c.errLocation(), name)
		}
		if g.Kind == gate.Int && g.Y != gate.Time {
			if c.IsKind(g.Y, gate.Constant) {
				return errors.Errorf("%s: integration gate %q has a constant second input", c.errLocation(), name)
			}
			return errors.Errorf("%s: integration gate %q has its second input different from t; normalize the circuit before using it", c.errLocation(), name)
		}
	}
	if c.output == "" {
		return errors.Errorf("%s: output gate has not been set", c.errLocation())
	}
	if c.output != gate.Time && !c.Has(c.output) {
		return errors.Errorf("%s: output gate %q is not part of the circuit", c.errLocation(), c.output)
	}
	return nil
}

// Finalize makes the circuit ready for simulation: normalize, optionally
// simplify, validate, check that every integration gate has an initial
// value, then cache the ordered integration-gate list. Finalize is
// idempotent; any later mutation clears the finalized flag.
func (c *Circuit) Finalize(simplification bool) error {
	if c.finalized {
		return nil
	}
	if err := c.Normalize(); err != nil {
		return err
	}
	if simplification {
		if err := c.Simplify(); err != nil {
			return err
		}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.intGates = c.intGates[:0]
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if g.Kind != gate.Int {
			delete(c.values, name)
			continue
		}
		if _, ok := c.values[name]; !ok {
			return errors.Errorf("%s: cannot finalize, integration gate %q has no initial value", c.errLocation(), name)
		}
		c.intGates = append(c.intGates, name)
	}
	c.finalized = true
	return nil
}

/* ===== Display ===== */

// String renders the circuit in the specification format, suitable for
// feeding back to the parser. The output gate is printed last, which is how
// the format marks it.
func (c *Circuit) String() string {
	var b strings.Builder
	prefix := ""
	if c.name != "" {
		b.WriteString("Circuit " + c.name + ":\n")
		prefix = "\t"
	}
	writeGate := func(name string) {
		b.WriteString(prefix + name + ": " + c.gates[name].String())
		if c.IsKind(name, gate.Int) {
			if v, ok := c.values[name]; ok {
				b.WriteString(" | " + strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		b.WriteString("\n")
	}
	for _, name := range c.GateNames() {
		if name == c.output {
			continue
		}
		writeGate(name)
	}
	if c.Has(c.output) {
		writeGate(c.output)
	}
	b.WriteString(";\n")
	return b.String()
}
