package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "***EMPTY***", MaskAPIKey(""))
	require.Equal(t, "**", MaskAPIKey("ab"))
	require.Equal(t, "ab******yz", MaskAPIKey("abcdefwxyz"))

	masked := MaskAPIKey("sk-proj-1234567890abcdef")
	require.NotContains(t, masked, "1234567890a")
	require.Contains(t, masked, "proj-")
}
