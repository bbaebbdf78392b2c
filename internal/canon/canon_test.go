package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainDeterminism(t *testing.T) {
	data := []byte("payload")

	h1 := HashWithDomain(DomainTIC, data)
	h2 := HashWithDomain(DomainTIC, data)

	assert.Equal(t, h1, h2, "identical inputs must hash identically")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")

	assert.NotEqual(t, HashWithDomain(DomainTIC, data), HashWithDomain(DomainBlock, data),
		"different domains must produce different digests")
}

func TestHashWithDomainBoundary(t *testing.T) {
	// The null separator prevents shifting bytes between domain and data.
	h1 := HashWithDomain("coagula/x", []byte("yz"))
	h2 := HashWithDomain("coagula/xy", []byte("z"))
	assert.NotEqual(t, h1, h2)
}

func TestShortIDLength(t *testing.T) {
	id := ShortID(DomainRoute, []byte("seed"))
	assert.Len(t, id, ShortIDLength)
}

func TestRealRendering(t *testing.T) {
	assert.Equal(t, "0.610000000000", Real(0.61))
	assert.Equal(t, "-0.300000000000", Real(-0.3))
	assert.Equal(t, "0.000000000000", Real(0))
}

func TestEncoderDeterminism(t *testing.T) {
	enc := func() []byte {
		return NewEncoder().
			String("seed", "MEF_SEED_42").
			RealField("mesh_score", 0.61).
			Reals("v", []float64{1.0, 0.5, -0.3, 0.8, -0.2}).
			Ints("sigma", []int{3, 1, 4, 2, 7, 5, 6}).
			Int("iter", 42).
			Bytes()
	}

	require.Equal(t, enc(), enc())
}

func TestEncoderFieldOrderSignificant(t *testing.T) {
	a := NewEncoder().String("a", "1").String("b", "2").Bytes()
	b := NewEncoder().String("b", "2").String("a", "1").Bytes()
	assert.NotEqual(t, a, b)
}

func TestEncoderNFCNormalization(t *testing.T) {
	// U+00E9 vs e + U+0301 combining acute: same NFC form, same bytes.
	composed := NewEncoder().String("s", "café").Bytes()
	decomposed := NewEncoder().String("s", "café").Bytes()
	assert.Equal(t, composed, decomposed)
}
