package validation

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unhunk/internal/errors"
	"unhunk/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeRequest_Hunk(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"repo":"/r","path":"f.txt","index":0}`, false},
		{"missing index", `{"repo":"/r","path":"f.txt"}`, true},
		{"missing path", `{"repo":"/r","index":1}`, true},
		{"unknown field", `{"repo":"/r","path":"f","index":0,"force":true}`, true},
		{"malformed", `{"repo":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req types.HunkRequest
			err := DecodeRequest(post(tt.body), HunkSchema, &req)
			if tt.wantErr {
				assert.True(t, stderrors.Is(err, errors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, *req.Index)
			assert.Equal(t, "f.txt", req.Path)
		})
	}
}

func TestDecodeRequest_Lines(t *testing.T) {
	var req types.LinesRequest
	require.NoError(t, DecodeRequest(post(`{"repo":"/r","path":"a","start":2,"end":4}`), LinesSchema, &req))
	assert.Equal(t, 2, req.Start)
	assert.Equal(t, 4, req.End)
}

func TestDecodeRequest_Undo(t *testing.T) {
	var req types.UndoRequest
	err := DecodeRequest(post(`{"repo":"/r"}`), UndoSchema, &req)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	require.IsType(t, map[string]string{}, e.Details)
	assert.Contains(t, e.Details.(map[string]string), "id")
}

func TestDecodeRequest_WrongType(t *testing.T) {
	var req types.LinesRequest
	err := DecodeRequest(post(`{"repo":"/r","path":"a","start":"2","end":4}`), LinesSchema, &req)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Contains(t, e.Details.(map[string]string), "start")
}
