package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListSettings_ListIdHeader(t *testing.T) {
	assert.Equal(t, "", (&ListSettings{}).ListIdHeader())
	assert.Equal(t, "<lists.pack144.org>", (&ListSettings{ListId: "lists.pack144.org"}).ListIdHeader())
	assert.Equal(t, "<lists.pack144.org> Pack 144", (&ListSettings{ListId: "lists.pack144.org", DisplayName: "Pack 144"}).ListIdHeader())
}

func TestListSettings_PrefixSubject(t *testing.T) {
	assert.Equal(t, "Campout", (&ListSettings{}).PrefixSubject("Campout"))
	assert.Equal(t, "[Pack 144] Campout", (&ListSettings{SubjectPrefix: "Pack 144"}).PrefixSubject("Campout"))
	assert.Equal(t, "[Pack 144] Campout", (&ListSettings{SubjectPrefix: "[Pack 144]"}).PrefixSubject("Campout"))
}
