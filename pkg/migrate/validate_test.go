package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}
