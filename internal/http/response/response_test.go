package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestErrorWithDataCarriesRequestID(t *testing.T) {
	c, w := newResponseTestContext()
	c.Set("request_id", "req-9")

	ErrorWithData(c, CodeConflict, "occupied", gin.H{"table": gin.H{"id": 7}})

	if w.Code != http.StatusConflict {
		t.Fatalf("http status want 409 got %d", w.Code)
	}
	var body struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.StatusCode != CodeConflict || body.Data["request_id"] != "req-9" || body.Data["table"] == nil {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestErrorWrapsNonMapData(t *testing.T) {
	c, w := newResponseTestContext()
	c.Set("request_id", "req-1")

	ErrorWithData(c, CodeBadRequest, "bad", []string{"a"})

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data["request_id"] != "req-1" || body.Data["data"] == nil {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUnknownCodeMapsTo500(t *testing.T) {
	if got := HTTPStatus(1234); got != http.StatusInternalServerError {
		t.Fatalf("want 500 got %d", got)
	}
	if got := HTTPStatus(CodeOK); got != http.StatusOK {
		t.Fatalf("want 200 got %d", got)
	}
}

func TestBuildPagination(t *testing.T) {
	p := BuildPagination(0, 20, 41)
	if p.Page != 1 || p.TotalPage != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if BuildPagination(1, 0, 5).TotalPage != 0 {
		t.Fatalf("zero page size should yield zero pages")
	}
}

func TestSuccessWithPageFlattensEnvelope(t *testing.T) {
	c, w := newResponseTestContext()
	SuccessWithPage(c, []int{1, 2}, BuildPagination(1, 2, 2))

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, ok := body["pagination"]; !ok {
		t.Fatalf("pagination missing: %s", w.Body.String())
	}
	if body["msg"] != "success" {
		t.Fatalf("msg should be flattened: %s", w.Body.String())
	}
}
