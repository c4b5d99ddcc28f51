package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"agentic-rag/internal/pkg/apperr"
)

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"validation", apperr.Validation("bad input"), http.StatusBadRequest, CodeBadRequest, "bad input"},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("document not found")), http.StatusNotFound, CodeNotFound, "document not found"},
		{"conflict stays 400", apperr.Conflict("exists"), http.StatusBadRequest, CodeConflict, "exists"},
		{"unsafe sql", apperr.Unprocessable("rejected"), http.StatusUnprocessableEntity, CodeUnprocessable, "rejected"},
		{"upstream hides cause", apperr.Upstream("embedding service failed", errors.New("dial tcp: refused")), http.StatusBadGateway, CodeBadGateway, "embedding service failed"},
		{"unknown is internal", errors.New("sql: connection reset"), http.StatusInternalServerError, CodeInternalServer, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Fail(c, tc.err)

			if w.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", w.Code, tc.wantStatus)
			}
			var body APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.wantCode || body.Message != tc.wantMsg {
				t.Fatalf("body: %+v", body)
			}
		})
	}
}
