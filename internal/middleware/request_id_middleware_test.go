package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func runRequestID(t *testing.T, inbound string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/lessons", nil)
	if inbound != "" {
		c.Request.Header.Set("X-Request-ID", inbound)
	}

	RequestIDMiddleware()(c)
	return w, c
}

func TestRequestIDKeepsValidInbound(t *testing.T) {
	w, c := runRequestID(t, "lesson-load.42")

	if got := w.Header().Get("X-Request-ID"); got != "lesson-load.42" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}
	stored, _ := c.Get("request_id")
	if stored != "lesson-load.42" {
		t.Fatalf("expected inbound id stored in context, got %v", stored)
	}
}

func TestRequestIDReplacesInvalidInbound(t *testing.T) {
	w, _ := runRequestID(t, "bad id with spaces!")

	got := w.Header().Get("X-Request-ID")
	if got == "" || got == "bad id with spaces!" {
		t.Fatalf("expected a fresh id, got %q", got)
	}
	if !inboundRequestID.MatchString(got) {
		t.Fatalf("generated id %q does not satisfy the inbound format", got)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	w, c := runRequestID(t, "")

	got := w.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatalf("expected a generated id")
	}
	stored, _ := c.Get("request_id")
	if stored != got {
		t.Fatalf("header id %q and context id %v disagree", got, stored)
	}
}
