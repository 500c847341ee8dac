package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpdash/internal/dataprocessing"
)

func TestErrorToProblem(t *testing.T) {
	h := NewErrorHandler(slog.Default(), false)
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/view", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "validation api error", err: ErrValidation("from", "must be an integer year"), wantStatus: 400, wantType: TypeValidation},
		{name: "not found api error", err: ErrRegionNotFound, wantStatus: 404, wantType: TypeNotFound},
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantStatus: 504, wantType: TypeTimeout},
		{name: "missing sheet", err: fmt.Errorf("load: %w", dataprocessing.ErrSheetNotFound), wantStatus: 500, wantType: TypeWorkbookMissing},
		{name: "schema error", err: &dataprocessing.SchemaError{Sheet: "1a", Missing: []string{"Code"}}, wantStatus: 500, wantType: TypeWorkbookSchema},
		{name: "parse error", err: &dataprocessing.ParseError{Sheet: "1b", Column: "2002", Value: "x"}, wantStatus: 500, wantType: TypeWorkbookParse},
		{name: "missing workbook", err: fmt.Errorf("workbook: %w", fs.ErrNotExist), wantStatus: 500, wantType: TypeWorkbookMissing},
		{name: "unknown error", err: fmt.Errorf("boom"), wantStatus: 500, wantType: TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/dashboard/view", problem.Instance)
		})
	}
}

func TestHandleErrorRendersProblemJSON(t *testing.T) {
	h := NewErrorHandler(slog.Default(), false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/view", nil)
	h.HandleError(rec, req, ErrValidation("from", "bad year"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeValidation, body["type"])
	assert.Equal(t, float64(400), body["status"])
}

func TestProblemDetailsExtensions(t *testing.T) {
	pd := NewProblemDetails(400, TypeValidation, "Validation Failed", "bad input", "/x").
		WithExtension("errors", []string{"from"})

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"errors":["from"]`)
	assert.Contains(t, string(data), `"detail":"bad input"`)
}
