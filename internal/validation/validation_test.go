package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogPlatform/internal/apperr"
)

type signup struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Email    string `json:"email" validate:"required,email"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(signup{Username: "alice_1", Email: "a@example.com"}))

	err := v.Struct(signup{Username: "al ice", Email: "nope"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	fields, ok := apperr.DetailsOf(err)["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "username", fields["username"])
	assert.Equal(t, "email", fields["email"])
}

func TestValidator_Var(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("avatarUrl", "https://example.com/a.png", "url"))
	assert.True(t, apperr.Is(v.Var("avatarUrl", "not a url", "url"), apperr.KindInvalid))
}
