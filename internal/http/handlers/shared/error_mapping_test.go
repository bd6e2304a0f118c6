package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comanda-next/internal/service"

	"github.com/gin-gonic/gin"
)

type errorEnvelope struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, errorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	RespondServiceError(c, err)

	var body errorEnvelope
	if decodeErr := json.Unmarshal(w.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("decode response failed: %v", decodeErr)
	}
	return w, body
}

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &service.OperationError{Kind: service.ErrValidation, Reason: "items required"}, want: http.StatusBadRequest},
		{name: "token format", err: service.ErrInvalidTokenFormat, want: http.StatusBadRequest},
		{name: "not found", err: &service.OperationError{Kind: service.ErrNotFound, Resource: "table", ResourceID: 9}, want: http.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("wrap: %w", service.ErrConflict), want: http.StatusConflict},
		{name: "transition", err: &service.OperationError{Kind: service.ErrInvalidTransition, Resource: "order", ResourceID: 2}, want: http.StatusUnprocessableEntity},
		{name: "unknown", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := serveError(t, tc.err)
			if w.Code != tc.want {
				t.Fatalf("http status = %d, want %d", w.Code, tc.want)
			}
			if body.StatusCode != tc.want {
				t.Fatalf("status_code = %d, want %d", body.StatusCode, tc.want)
			}
		})
	}
}

func TestRespondServiceErrorCarriesResource(t *testing.T) {
	_, body := serveError(t, &service.OperationError{Kind: service.ErrInvalidTransition, Resource: "order", ResourceID: 2, Reason: "delivered"})
	if body.Msg != "Invalid status transition" {
		t.Fatalf("unexpected msg: %s", body.Msg)
	}
	if body.Data["resource"] != "order" {
		t.Fatalf("resource missing: %+v", body.Data)
	}
	if id, _ := body.Data["resource_id"].(float64); id != 2 {
		t.Fatalf("resource_id = %v", body.Data["resource_id"])
	}
	if body.Data["reason"] != "delivered" {
		t.Fatalf("reason missing: %+v", body.Data)
	}
}
