package i18n

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {
	err := LoadLabels(filepath.Join("..", "..", "..", "locales"))
	require.NoError(t, err)

	assert.Equal(t, "Whole Blood", Translate("en", "donation.whole_blood"))
	assert.Equal(t, "Darah Lengkap", Translate("id", "donation.whole_blood"))
	assert.Equal(t, "Kritis", Label("id", "urgency", "Critical"))
	assert.Equal(t, "Blood Bank", Label("en", "role", "BloodBank"))

	// "total" only exists in en.
	assert.Equal(t, "Total", Translate("id", "export.total"))

	assert.Equal(t, "NON_EXISTENT_KEY", Translate("id", "NON_EXISTENT_KEY"))
	assert.Equal(t, "O-", Label("en", "blood", "O-"))
}

func TestLoadLabels_MissingRoot(t *testing.T) {
	assert.Error(t, LoadLabels(filepath.Join(t.TempDir(), "nope")))
}
