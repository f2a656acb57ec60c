package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
)

type sample struct {
	Name     string `validate:"nonblank,max=10"`
	Status   string `validate:"taskstatus"`
	Quantity int    `validate:"gte=0"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "ok", Status: "todo"}))
	require.NoError(t, Struct(sample{Name: "ok"}))
}

func TestStructRejectsBlankAndLongNames(t *testing.T) {
	err := Struct(sample{Name: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name is required")

	err = Struct(sample{Name: strings.Repeat("x", 11)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "at most 10")
}

func TestStructMapsStatusToInvalidStatus(t *testing.T) {
	err := Struct(sample{Name: "ok", Status: "archived"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStructRejectsNegativeQuantity(t *testing.T) {
	err := Struct(sample{Name: "ok", Quantity: -1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
