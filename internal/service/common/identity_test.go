package common

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectDeviceType(t *testing.T) {
	t.Parallel()

	got := DetectDeviceType("smart-dial")
	require.True(t, strings.HasPrefix(got, "smart-dial"))

	hostname, err := os.Hostname()
	require.NoError(t, err)

	if hostname == "" {
		require.Equal(t, "smart-dial", got)
		return
	}

	suffix := strings.TrimPrefix(got, "smart-dial#")
	require.LessOrEqual(t, len(suffix), maxInstanceLength)
	require.True(t, strings.HasPrefix(hostname, suffix))
}
