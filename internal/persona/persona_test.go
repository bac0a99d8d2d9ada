package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPersona(t *testing.T) {
	p, err := Get("yaprak")
	require.NoError(t, err)
	assert.Equal(t, "yaprak", p.ID)
	assert.Equal(t, 0, p.Index)
	assert.NotEmpty(t, p.System)
	assert.NotEmpty(t, p.WelcomeMsg)
	assert.NotEmpty(t, p.Model)
}

func TestGetUnknownPersona(t *testing.T) {
	_, err := Get("bulut")
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestAllOrderedByIndex(t *testing.T) {
	all := All()
	require.Len(t, all, 4)
	for i, p := range all {
		assert.Equal(t, i, p.Index)
	}
}
