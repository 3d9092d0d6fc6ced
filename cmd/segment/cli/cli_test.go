package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dronesar/segmentplanner/internal/planerr"
)

func TestExitCodeForMapsEveryKind(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{planerr.Configf("bad config"), 2},
		{planerr.Dataf("bad data"), 3},
		{planerr.ErrCancelled, 4},
		{planerr.Internalf("bug"), 5},
		{planerr.Resourcef("disk full"), 6},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, exitCodeFor(c.err))
	}
}

func TestExitCodeForUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, 5, exitCodeFor(errors.New("plain error")))
}
