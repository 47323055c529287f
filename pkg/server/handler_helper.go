package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-communities/pkg/logging"
)

// maxRequestBody caps request bodies well above the largest matrix the
// vertex cap admits.
const maxRequestBody = 16 << 20

// sanitizeError logs the full error and returns a user-safe message.
// Internal details like solver state never reach the client.
func (s *Server) sanitizeError(err error, operation string) string {
	if err == nil {
		return ""
	}
	s.logger.Error("internal error", logging.Operation(operation), logging.Error(err))
	return operation + " failed"
}

// requestDecoder chains request decoding steps, remembering the first
// failure and the status it maps to.
type requestDecoder struct {
	req    *http.Request
	resp   http.ResponseWriter
	server *Server
	err    error
	status int
}

// decode starts a decode chain for one request.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{req: r, resp: w, server: s}
}

// JSON parses the body into v, with the body size capped.
func (d *requestDecoder) JSON(v any) *requestDecoder {
	if d.err != nil {
		return d
	}
	body := http.MaxBytesReader(d.resp, d.req.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		d.err = fmt.Errorf("invalid request body: %w", err)
		d.status = http.StatusBadRequest
	}
	return d
}

// HasError reports whether any step failed.
func (d *requestDecoder) HasError() bool {
	return d.err != nil
}

// Error returns the first failure, nil when the chain is clean.
func (d *requestDecoder) Error() error {
	return d.err
}

// RespondError writes the recorded failure and reports whether one
// existed, so handlers can return early.
func (d *requestDecoder) RespondError() bool {
	if d.err == nil {
		return false
	}
	d.server.respondError(d.resp, d.status, d.err.Error())
	return true
}

// methodRouter dispatches one request by HTTP method without the usual
// switch boilerplate.
type methodRouter struct {
	resp    http.ResponseWriter
	req     *http.Request
	server  *Server
	handled bool
}

// route starts method dispatch for one request.
func (s *Server) route(w http.ResponseWriter, r *http.Request) *methodRouter {
	return &methodRouter{resp: w, req: r, server: s}
}

func (rt *methodRouter) match(method string, handler func()) *methodRouter {
	if !rt.handled && rt.req.Method == method {
		rt.handled = true
		handler()
	}
	return rt
}

// Get runs handler for GET requests.
func (rt *methodRouter) Get(handler func()) *methodRouter {
	return rt.match(http.MethodGet, handler)
}

// Post runs handler for POST requests.
func (rt *methodRouter) Post(handler func()) *methodRouter {
	return rt.match(http.MethodPost, handler)
}

// NotAllowed answers 405 when nothing matched. Terminates the chain.
func (rt *methodRouter) NotAllowed() {
	if !rt.handled {
		rt.server.respondError(rt.resp, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
