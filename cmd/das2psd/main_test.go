package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePositiveIntRejectsNonPositive(t *testing.T) {
	r := require.New(t)

	v, err := parsePositiveInt("1024", "LENGTH")
	r.NoError(err)
	r.Equal(1024, v)

	_, err = parsePositiveInt("0", "LENGTH")
	r.Error(err)

	_, err = parsePositiveInt("abc", "LENGTH")
	r.Error(err)
}
