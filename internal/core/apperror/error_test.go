package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrors_Err(t *testing.T) {
	var fe FieldErrors
	assert.NoError(t, fe.Err())

	fe.Add("litter.totalBorn", RuleLitterSum, "bornAlive+stillborn+mummified exceeds totalBorn")
	fe.Add("service.date", RuleRequired, "service date is required")

	err := fe.Err()
	require.Error(t, err)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Equal(t, "validation failed", appErr.Message)
	require.Len(t, appErr.Fields(), 2)
	assert.Equal(t, "service.date", appErr.Fields()[1].Field)
}

func TestFieldErrors_SingleUsesMessage(t *testing.T) {
	var fe FieldErrors
	fe.Add("date", RuleRequired, "date is required")

	appErr, ok := AsAppError(fe.Err())
	require.True(t, ok)
	assert.Equal(t, "date is required", appErr.Message)
}

func TestFieldErrors_MergePrefixes(t *testing.T) {
	var inner FieldErrors
	inner.Add("bodyCondition", RuleRange, "out of range")

	var outer FieldErrors
	outer.Merge("lactation", inner)
	outer.Merge("", inner)

	require.Len(t, outer, 2)
	assert.Equal(t, "lactation.bodyCondition", outer[0].Field)
	assert.Equal(t, "bodyCondition", outer[1].Field)
}

func TestHelpers_UnwrapChain(t *testing.T) {
	err := fmt.Errorf("update sow: %w", NewTerminalStatus("abc", "descartada"))

	assert.True(t, IsTerminalStatus(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}
