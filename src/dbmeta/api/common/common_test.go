package common

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/gin-gonic/gin"
)

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Request.RemoteAddr = "192.168.1.1:12345"
	return c, w
}

func TestAuditLog_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	SetAuditLogger(logs.NewWithWriter(&buf, logs.OutputStderr, logs.Config{Level: "info"}))
	defer SetAuditLogger(logs.Discard())

	c, _ := newTestContext(http.MethodPost, "/v1/sqlserver-dts-infos")
	AuditLog(c, AuditEvent{
		Action:   "dts_info.create",
		Resource: "sqlserver_dts_info:12",
		Operator: "admin",
		Success:  true,
	})

	out := buf.String()
	for _, want := range []string{"audit=true", "action=dts_info.create", "status=success", "operator=admin", "client_ip=192.168.1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit entry %q missing %q", out, want)
		}
	}
}

func TestAuditLog_NilContext(t *testing.T) {
	var buf bytes.Buffer
	SetAuditLogger(logs.NewWithWriter(&buf, logs.OutputStderr, logs.Config{Level: "info"}))
	defer SetAuditLogger(logs.Discard())

	AuditLog(nil, AuditEvent{Action: "migration.apply", Detail: "failed", Success: false})

	if !strings.Contains(buf.String(), "status=failure") {
		t.Fatalf("expected failure status, got %q", buf.String())
	}
}

func TestOperator(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/")
	if got := Operator(c); got != DefaultOperator {
		t.Fatalf("expected %q without header, got %q", DefaultOperator, got)
	}

	c.Request.Header.Set(OperatorHeader, "alice")
	if got := Operator(c); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}

func TestAbortWithError(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	AbortWithError(c, errors.ErrDtsInfoExists.WithMessage("taken"))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var resp errors.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Error != "catalog.already_exists" || resp.Message != "taken" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestParamID(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	if _, ok := ParamID(c, "id"); ok {
		t.Fatal("expected non-numeric id to be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	c, _ = newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	if id, ok := ParamID(c, "id"); !ok || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, ok)
	}
}
