package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_Symmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b map[string]float64
	}{
		{"overlap", map[string]float64{"fuerza": 2, "volar": 1}, map[string]float64{"fuerza": 1, "sigilo": 3}},
		{"disjoint", map[string]float64{"fuerza": 1}, map[string]float64{"sigilo": 1}},
		{"fractional", map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}, map[string]float64{"c": 0.7, "a": 0.3, "d": 0.11}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Cosine(tc.a, tc.b), Cosine(tc.b, tc.a))
		})
	}
}

func TestCosine_SelfIsMaximal(t *testing.T) {
	v := map[string]float64{"fuerza": 2, "velocidad": 1}
	other := map[string]float64{"fuerza": 1}

	self := Cosine(v, v)
	assert.InDelta(t, 1.0, self, 1e-12)
	assert.GreaterOrEqual(t, self, Cosine(v, other))
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	v := map[string]float64{"fuerza": 1}

	assert.Equal(t, 0.0, Cosine(v, map[string]float64{}))
	assert.Equal(t, 0.0, Cosine(map[string]float64{}, v))
	assert.Equal(t, 0.0, Cosine(v, map[string]float64{"fuerza": 0}))
	assert.Equal(t, 0.0, Cosine[string](nil, nil))
}

func TestCosine_PositionalKeys(t *testing.T) {
	a := map[int]float64{0: 1, 1: 0}
	b := map[int]float64{0: 0, 1: 1}
	assert.Equal(t, 0.0, Cosine(a, b))
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-12)
}

func TestDense(t *testing.T) {
	assert.InDelta(t, 1.0, Dense([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.Equal(t, 0.0, Dense([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Dense(nil, []float32{1}))
	assert.Equal(t, Dense([]float32{1, 3}, []float32{2, 1}), Dense([]float32{2, 1}, []float32{1, 3}))
	// Shared prefix only.
	assert.InDelta(t, 1.0, Dense([]float32{1, 1}, []float32{1, 1, 9}), 1e-9)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"puede", "volar", "gran", "fuerza", "resistencia"},
		Tokenize("Puede volar con gran fuerza y resistencia."),
	)
	assert.Equal(t, []string{"niño", "araña"}, Tokenize("¿El NIÑO-araña?"))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("de la con y por"))
}

func TestTokenize_NormalizationForms(t *testing.T) {
	composed := "energ\u00eda c\u00f3smica"
	decomposed := "energi\u0301a co\u0301smica"

	assert.Equal(t, []string{"energ\u00eda", "c\u00f3smica"}, Tokenize(composed))
	assert.Equal(t, Tokenize(composed), Tokenize(decomposed))

	q := TermFrequencies(Tokenize(decomposed))
	d := TermFrequencies(Tokenize(composed))
	assert.InDelta(t, 1.0, Cosine(q, d), 1e-9)
}
