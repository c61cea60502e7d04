package circuit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// latexTerm is one monomial of a polynomial in t and the state variables:
// a coefficient times a product of powers.
type latexTerm struct {
	coef float64
	vars map[string]int // variable symbol -> exponent
}

func (t latexTerm) key() string {
	names := make([]string, 0, len(t.vars))
	for v := range t.vars {
		names = append(names, v)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, v := range names {
		parts[i] = v + "^" + strconv.Itoa(t.vars[v])
	}
	return strings.Join(parts, " ")
}

func mulTerms(a, b latexTerm) latexTerm {
	res := latexTerm{coef: a.coef * b.coef, vars: make(map[string]int, len(a.vars)+len(b.vars))}
	for v, p := range a.vars {
		res.vars[v] += p
	}
	for v, p := range b.vars {
		res.vars[v] += p
	}
	return res
}

// collectTerms sums coefficients of like monomials and drops zero terms,
// keeping a stable order.
func collectTerms(terms []latexTerm) []latexTerm {
	byKey := make(map[string]*latexTerm)
	var order []string
	for _, t := range terms {
		k := t.key()
		if acc, ok := byKey[k]; ok {
			acc.coef += t.coef
			continue
		}
		cp := t
		byKey[k] = &cp
		order = append(order, k)
	}
	var res []latexTerm
	for _, k := range order {
		if byKey[k].coef != 0 {
			res = append(res, *byKey[k])
		}
	}
	return res
}

// polynomialOf expands the sub-DAG rooted at name into a sum of monomials
// over t and the state variables vars (integration gate name -> symbol).
func (c *Circuit) polynomialOf(name string, vars map[string]string, memo map[string][]latexTerm) ([]latexTerm, error) {
	if name == gate.Time {
		return []latexTerm{{coef: 1, vars: map[string]int{"t": 1}}}, nil
	}
	if sym, ok := vars[name]; ok {
		return []latexTerm{{coef: 1, vars: map[string]int{sym: 1}}}, nil
	}
	if terms, ok := memo[name]; ok {
		return terms, nil
	}
	g := c.gates[name]
	if g == nil {
		return nil, errors.Errorf("%s: LaTeX export reached unknown gate %q", c.errLocation(), name)
	}
	var terms []latexTerm
	switch g.Kind {
	case gate.Constant:
		terms = []latexTerm{{coef: g.Value, vars: map[string]int{}}}
	case gate.Add:
		x, err := c.polynomialOf(g.X, vars, memo)
		if err != nil {
			return nil, err
		}
		y, err := c.polynomialOf(g.Y, vars, memo)
		if err != nil {
			return nil, err
		}
		terms = collectTerms(append(append([]latexTerm{}, x...), y...))
	case gate.Prod:
		x, err := c.polynomialOf(g.X, vars, memo)
		if err != nil {
			return nil, err
		}
		y, err := c.polynomialOf(g.Y, vars, memo)
		if err != nil {
			return nil, err
		}
		var prod []latexTerm
		for _, tx := range x {
			for _, ty := range y {
				prod = append(prod, mulTerms(tx, ty))
			}
		}
		terms = collectTerms(prod)
	case gate.Int:
		return nil, errors.Errorf("%s: LaTeX export reached integration gate %q outside the state mapping", c.errLocation(), name)
	}
	memo[name] = terms
	return terms, nil
}

func formatCoef(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func renderTerms(terms []latexTerm) string {
	if len(terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range terms {
		coef := t.coef
		if i > 0 {
			if coef < 0 {
				b.WriteString(" - ")
				coef = -coef
			} else {
				b.WriteString(" + ")
			}
		} else if coef < 0 {
			b.WriteString("-")
			coef = -coef
		}
		names := make([]string, 0, len(t.vars))
		for v := range t.vars {
			names = append(names, v)
		}
		sort.Strings(names)
		if coef != 1 || len(names) == 0 {
			b.WriteString(formatCoef(coef))
		}
		for _, v := range names {
			b.WriteString(v)
			if p := t.vars[v]; p > 1 {
				b.WriteString("^{" + strconv.Itoa(p) + "}")
			}
		}
	}
	return b.String()
}

// ToLaTeX renders the finalized circuit as the polynomial initial-value
// problem it defines: one line x_i' = p_i(x, t), x_i(0) = v_i per
// integration gate, and a final line for the output.
func (c *Circuit) ToLaTeX() (string, error) {
	if !c.finalized {
		return "", errors.Errorf("%s: can only export a finalized circuit to LaTeX", c.errLocation())
	}
	vars := make(map[string]string, len(c.intGates))
	for i, name := range c.intGates {
		vars[name] = fmt.Sprintf("x_{%d}", i+1)
	}
	memo := make(map[string][]latexTerm)

	var b strings.Builder
	b.WriteString("\\left\\{\\begin{array}{l}\n")
	for i, name := range c.intGates {
		terms, err := c.polynomialOf(c.gates[name].X, vars, memo)
		if err != nil {
			return "", err
		}
		v := c.values[name]
		fmt.Fprintf(&b, "x_{%d}' = %s, \\quad x_{%d}(0) = %s\\\\\n",
			i+1, renderTerms(terms), i+1, formatCoef(v))
	}
	var out string
	if sym, ok := vars[c.output]; ok {
		out = sym
	} else {
		terms, err := c.polynomialOf(c.output, vars, memo)
		if err != nil {
			return "", err
		}
		out = renderTerms(terms)
	}
	fmt.Fprintf(&b, "y = %s\n", out)
	b.WriteString("\\end{array}\\right.\n")
	return b.String(), nil
}
