package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterminism(t *testing.T) {
	k1 := raceIdentity("S1", 1).Key()
	k2 := raceIdentity("S1", 1).Key()

	assert.Equal(t, k1, k2, "Key must be deterministic")
	assert.Len(t, k1, 64, "SHA-256 hex is 64 characters")
}

func TestKeyIndependentOfFieldOrder(t *testing.T) {
	a := NewRecord("Finish").
		SetValue("place", Int(1)).
		SetValue("finished", Bool(true))
	b := NewRecord("Finish").
		SetValue("finished", Bool(true)).
		SetValue("place", Int(1))

	assert.Equal(t, a.Key(), b.Key())
}

func TestKeyChangesWithInput(t *testing.T) {
	base := raceIdentity("S1", 1).Key()

	assert.NotEqual(t, base, raceIdentity("S2", 1).Key(), "nested identity participates")
	assert.NotEqual(t, base, raceIdentity("S1", 2).Key(), "scalar identity participates")

	otherType := raceIdentity("S1", 1)
	otherType.Type = "Heat"
	assert.NotEqual(t, base, otherType.Key(), "type participates")
}

func TestKeyDistinguishesValueTypes(t *testing.T) {
	str := NewRecord("T").SetValue("f", String("1")).Key()
	num := NewRecord("T").SetValue("f", Int(1)).Key()
	null := NewRecord("T").SetValue("f", Null{}).Key()
	empty := NewRecord("T").SetValue("f", String("")).Key()

	assert.NotEqual(t, str, num)
	assert.NotEqual(t, null, empty)
}

func TestKeyKeepsNormalizationForms(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent.
	composed := NewRecord("Driver").SetValue("tag", String("\u00e9")).Key()
	decomposed := NewRecord("Driver").SetValue("tag", String("e\u0301")).Key()

	assert.NotEqual(t, composed, decomposed, "stores treat these as different tags")
}

func TestMarshalCanonical(t *testing.T) {
	r := NewRecord("Team").
		SetValue("tag", String("<Y&>")).
		SetValue("name", Null{})

	assert.Equal(t,
		`{"fields":{"name":null,"tag":"<Y&>"},"type":"Team"}`,
		string(MarshalCanonical(r)))
}

func TestUnescapeLineSeparators(t *testing.T) {
	assert.Equal(t, "\"a\u2028b\"", string(unescapeLineSeparators([]byte(`"a\u2028b"`))))
	assert.Equal(t, `"a\\u2028b"`, string(unescapeLineSeparators([]byte(`"a\\u2028b"`))))
}
