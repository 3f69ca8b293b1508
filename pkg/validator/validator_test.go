package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	CorpID int64  `json:"corpId" validate:"required,gt=0"`
	Answer string `json:"textResponse" validate:"required,max=5"`
	Items  []item `json:"responses" validate:"omitempty,dive"`
}

type item struct {
	Answer string `json:"answer" validate:"required"`
}

func TestValidate_ReportsJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Answer: "too long", Items: []item{{}}})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "corpId is required")
	assert.Contains(t, err.Error(), "textResponse must be at most 5")
	assert.Contains(t, err.Error(), "responses[0].answer is required")
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, New().Validate(&sample{CorpID: 1, Answer: "ok"}))
}
