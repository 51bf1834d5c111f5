package dastime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToUS2000(t *testing.T) {
	r := require.New(t)

	r.Equal(0.0, ToUS2000(mustDate(2000, 1, 1)))
	r.Equal(FromUS2000(0).UTC(), mustDate(2000, 1, 1))
}

func TestToNS1970(t *testing.T) {
	r := require.New(t)

	in := time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC)
	r.Equal(int64(time.Second), ToNS1970(in))
	r.True(FromNS1970(int64(time.Second)).Equal(in))
}

func TestToMJ1958(t *testing.T) {
	r := require.New(t)

	r.Equal(0.0, ToMJ1958(mustDate(1958, 1, 1)))

	in := mustDate(1958, 1, 2)
	r.InDelta(1.0, ToMJ1958(in), 1e-9)
	r.True(FromMJ1958(1.0).Equal(in))
}
