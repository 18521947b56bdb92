package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsValidDocumentID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"1", true},
		{"42", true},
		{"9223372036854775807", true},
		{"", false},
		{"abc", false},
		{"-1", false},
		{"12a", false},
		{"12345678901234567890", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidDocumentID(tt.id))
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
	}{
		{"pgx no rows", fmt.Errorf("get document: %w", pgx.ErrNoRows), CategoryNotFound},
		{"gorm not found", gorm.ErrRecordNotFound, CategoryNotFound},
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"dial", fmt.Errorf("dial tcp: refused"), CategoryNetwork},
		{"other", fmt.Errorf("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, Category(tt.err))
		})
	}
}

func TestInternalError_SanitizesInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetEnvironment("production")
	defer SetEnvironment("development")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/documents/1/history", nil)

	InternalError(c, "failed to list history", fmt.Errorf("postgres: relation missing"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeServerError, body.Error)
	assert.Equal(t, "database operation failed", body.Details)
}

func TestValidatePathDocumentID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "document_id", Value: "abc"}}

	_, ok := ValidatePathDocumentID(c, "document_id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
