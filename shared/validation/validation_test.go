package validation

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(domain.DistributionList{Name: "Den 4"}))

	err := Struct(domain.DistributionList{})
	assert.Equal(t, http.StatusBadRequest, errors.StatusCode(err))
	assert.Contains(t, err.Error(), "Name is required")

	err = Struct(domain.DistributionList{Name: strings.Repeat("x", 151)})
	assert.Contains(t, err.Error(), "Name must be at most 150 characters")

	err = Struct(domain.ListSettings{ListId: "lists.pack144.org", FromEmail: "not-an-email"})
	assert.Contains(t, err.Error(), "FromEmail must be a valid email")

	err = Struct(domain.DistributionList{Name: "Den 4", SubGroups: []domain.SubGroupRef{{Kind: "troop", Id: 1}}})
	assert.Contains(t, err.Error(), "Kind must be one of [den committee]")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("den4@pack144.org", "required,email"))
	assert.Equal(t, http.StatusBadRequest, errors.StatusCode(Var("den4", "required,email")))
}
