package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/invoice-insights/internal/testing/guard"
)

func TestGuardEnablesTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestRefreshTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv("INVOICE_TEST_MODE", "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv("INVOICE_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestMediaTypeFor(t *testing.T) {
	require.Contains(t, MediaTypeFor("/tmp/march.csv"), "text/csv")
	require.Equal(t, "application/octet-stream", MediaTypeFor("/tmp/blob.unknownext"))
}
