package money

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsZero(t *testing.T) {
	var m Money
	assert.True(t, m.IsZero())
	assert.True(t, m.Equal(Zero()))
	assert.Equal(t, "0.00", m.String())
}

func TestArithmetic(t *testing.T) {
	a := MustParse("10.10")
	b := MustParse("0.20")

	assert.Equal(t, "10.30", a.Add(b).String())
	assert.Equal(t, "9.90", a.Sub(b).String())
	assert.Equal(t, "30.30", a.MulInt(3).String())
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustParse("10.1")))
}

func TestMulByFractionKeepsCents(t *testing.T) {
	// 0.1 + 0.2 style drift would show up here with float64.
	price := MustParse("0.10")
	total := Zero()
	for i := 0; i < 3; i++ {
		total = total.Add(price)
	}
	assert.True(t, total.Equal(MustParse("0.30")))

	discounted := MustParse("19.99").Mul(decimal.RequireFromString("0.15"))
	assert.Equal(t, "2.9985", discounted.String())
}

func TestAddIsAssociativeAndCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := FromCents(r.Int63n(1_000_000))
		b := FromCents(r.Int63n(1_000_000))
		c := FromCents(r.Int63n(1_000_000))

		require.True(t, a.Add(b).Equal(b.Add(a)))
		require.True(t, a.Add(b).Add(c).Equal(a.Add(b.Add(c))))
	}
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.Equal(t, "25.00", Sum(FromInt(10), FromInt(10), FromInt(5)).String())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("ten dollars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse money")
}

func TestJSONRoundTripsAsString(t *testing.T) {
	data, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: MustParse("5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"5.00"}`, string(data))

	var out struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"12.345"}`), &out))
	assert.Equal(t, "12.345", out.Price.String())
}

func TestScanAndValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("42.50"))
	assert.True(t, m.Equal(MustParse("42.5")))

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "42.5", v)
}

func TestStringTrimsOnlyBeyondTwoPlaces(t *testing.T) {
	assert.Equal(t, "6.70", New(decimal.New(6700000, -6)).String())
	assert.Equal(t, "6.705", New(decimal.New(6705000, -6)).String())
	assert.Equal(t, "-1.50", MustParse("-1.5").String())
}
