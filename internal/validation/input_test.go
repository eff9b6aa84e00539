package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice("цена предложения", 250))
	assert.Error(t, ValidatePrice("цена предложения", 0))
	assert.Error(t, ValidatePrice("сумма ставки", -10))
	assert.Error(t, ValidatePrice("сумма ставки", MaxPrice+1))
}

func TestValidateReviewComment(t *testing.T) {
	assert.NoError(t, ValidateReviewComment(nil))

	empty := ""
	assert.NoError(t, ValidateReviewComment(&empty))

	ok := "всё прошло отлично"
	assert.NoError(t, ValidateReviewComment(&ok))

	long := strings.Repeat("а", MaxReviewCommentLength+1)
	assert.Error(t, ValidateReviewComment(&long))
}
