package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	testCases := []struct {
		username string
		ok       bool
	}{
		{"gopher", true},
		{"go_pher_42", true},
		{"ab", false},
		{"has space", false},
		{"has-hyphen", false},
		{"", false},
	}

	for _, tc := range testCases {
		err := ValidateUsername(tc.username)
		if tc.ok {
			assert.NoError(t, err, tc.username)
		} else {
			assert.Error(t, err, tc.username)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Sup3rSecret"))

	assert.Error(t, ValidatePassword("short1A"), "too short")
	assert.Error(t, ValidatePassword("alllowercase1"), "no uppercase")
	assert.Error(t, ValidatePassword("ALLUPPERCASE1"), "no lowercase")
	assert.Error(t, ValidatePassword("NoDigitsHere"), "no digit")
}
