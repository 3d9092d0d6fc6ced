package planerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindConstructors(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
	}{
		{Configf("bad config"), Config},
		{Dataf("bad data"), Data},
		{Resourcef("out of memory"), Resource},
		{Internalf("invariant violated"), Internal},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.err.Kind)
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	e := Configf("polygon has %d vertices", 3)
	assert.Equal(t, "ConfigError: polygon has 3 vertices", e.Error())

	wrapped := Wrap(Data, errors.New("boom"), "reading %s", "dem.tif")
	assert.Equal(t, "DataError: reading dem.tif: boom", wrapped.Error())
	assert.Equal(t, "boom", wrapped.Unwrap().Error())
}

func TestAsExtractsKind(t *testing.T) {
	err := Dataf("missing raster")
	kind, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, Data, kind)

	_, ok = As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	a := Cancelledf()
	assert.True(t, errors.Is(a, ErrCancelled))

	b := Dataf("x")
	assert.False(t, errors.Is(b, ErrCancelled))
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("root cause")
	e := Wrap(Resource, cause, "allocating buffer")
	assert.ErrorIs(t, e, cause)
}

// Cancelledf is a tiny local helper mirroring how callers build a fresh
// Cancelled error distinct from the ErrCancelled sentinel, to confirm
// errors.Is compares by Kind rather than pointer identity.
func Cancelledf() *Error { return newf(Cancelled, "operation cancelled") }
