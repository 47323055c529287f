package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestDecoder_JSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	cases := []struct {
		name     string
		body     string
		wantFail bool
	}{
		{"solve request", `{"matrix": [[0, 1], [1, 0]], "k": 1}`, false},
		{"broken JSON", `{matrix: oops`, true},
		{"empty body", ``, true},
		{"wrong top-level type", `[1, 2, 3]`, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(c.body))
			rec := httptest.NewRecorder()

			var payload CommunitiesRequest
			d := s.decode(rec, req).JSON(&payload)

			if c.wantFail && !d.HasError() {
				t.Error("decode succeeded on bad input")
			}
			if !c.wantFail && d.HasError() {
				t.Errorf("decode failed: %v", d.Error())
			}
		})
	}
}

func TestRequestDecoder_RespondErrorWritesBadRequest(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{bad`))
	rec := httptest.NewRecorder()

	var payload CommunitiesRequest
	d := s.decode(rec, req).JSON(&payload)

	if !d.RespondError() {
		t.Fatal("RespondError returned false for a failed chain")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	clean := s.decode(httptest.NewRecorder(), req)
	if clean.RespondError() {
		t.Error("RespondError returned true for a clean chain")
	}
}

func TestMethodRouter_Dispatch(t *testing.T) {
	s := newTestServer(t, testConfig())

	cases := []struct {
		method string
		want   string
	}{
		{http.MethodGet, "get"},
		{http.MethodPost, "post"},
		{http.MethodPut, "rejected"},
		{http.MethodDelete, "rejected"},
		{http.MethodHead, "rejected"},
	}

	for _, c := range cases {
		t.Run(c.method, func(t *testing.T) {
			req := httptest.NewRequest(c.method, "/test", nil)
			rec := httptest.NewRecorder()

			ran := ""
			s.route(rec, req).
				Get(func() { ran = "get" }).
				Post(func() { ran = "post" }).
				NotAllowed()

			if c.want == "rejected" {
				if rec.Code != http.StatusMethodNotAllowed {
					t.Errorf("status = %d, want 405", rec.Code)
				}
				if ran != "" {
					t.Errorf("handler %q ran for rejected method", ran)
				}
			} else if ran != c.want {
				t.Errorf("ran %q, want %q", ran, c.want)
			}
		})
	}
}
