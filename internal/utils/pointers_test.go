package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-sso-server/internal/utils"
)

func TestPointers(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 3, utils.Value(utils.Ptr(3)))
	require.Nil(t, utils.NilIfZero(""))
	require.Equal(t, "x", *utils.NilIfZero("x"))
}
