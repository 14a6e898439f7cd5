package search

import (
	"testing"

	"github.com/devlog-app/backend/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	assert.Nil(t, ValidateQuery("go"))
	assert.Nil(t, ValidateQuery("  concurrency  "))

	apiErr := ValidateQuery("g")
	assert.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrValidation, apiErr.Code)

	// Whitespace padding does not count towards the minimum
	assert.NotNil(t, ValidateQuery(" a "))
	assert.NotNil(t, ValidateQuery(""))
}
