package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"granja/internal/core/apperror"
)

func TestExpectedVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler()

	tests := []struct {
		header string
		want   int
		wantOK bool
	}{
		{"", 0, true},
		{"3", 3, true},
		{`"3"`, 3, true},
		{`W/"7"`, 7, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"three", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(HeaderIfMatch, tt.header)
			}

			got, ok := h.ExpectedVersion(c)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if !ok {
				assert.True(t, c.IsAborted())
				assert.True(t, apperror.IsValidation(c.Errors.Last().Err))
			}
		})
	}
}

func TestParseDateQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?from=2024-03-01&to=bad", nil)

	from, ok := h.ParseDateQuery(c, "from")
	assert.True(t, ok)
	assert.Equal(t, "2024-03-01", from.String())

	missing, ok := h.ParseDateQuery(c, "asOf")
	assert.True(t, ok)
	assert.Nil(t, missing)

	_, ok = h.ParseDateQuery(c, "to")
	assert.False(t, ok)
	assert.True(t, apperror.IsValidation(c.Errors.Last().Err))
}
