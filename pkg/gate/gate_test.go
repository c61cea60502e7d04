package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateString(t *testing.T) {
	tests := []struct {
		name string
		g    *Gate
		want string
	}{
		{"constant", NewConstant(2.5), "2.5"},
		{"negative constant", NewConstant(-1), "-1"},
		{"add", NewAdd("a", "b"), "a + b"},
		{"prod", NewProd("x", "t"), "x * t"},
		{"int", NewInt("f", "t"), "int f d(t)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.String())
		})
	}
}

func TestGateEval(t *testing.T) {
	assert.Equal(t, 5.0, NewAdd("a", "b").Eval(2, 3))
	assert.Equal(t, 6.0, NewProd("a", "b").Eval(2, 3))
}

func TestGateBinary(t *testing.T) {
	assert.False(t, NewConstant(1).Binary())
	assert.True(t, NewAdd("a", "b").Binary())
	assert.True(t, NewProd("a", "b").Binary())
	assert.True(t, NewInt("a", "b").Binary())
}

func TestGateClone(t *testing.T) {
	g := NewInt("f", "t")
	c := g.Clone()
	c.X = "other"
	assert.Equal(t, "f", g.X)
}
