package client

import (
	"net/http"
	"net/http/httptest"

	"github.com/devicelab-dev/terrain/pkg/templates"
)

// handlerTransport serves requests by calling an http.Handler directly,
// the way a test client talks to an application without a socket.
type handlerTransport struct {
	handler http.Handler
}

// RoundTrip implements http.RoundTripper.
func (t *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// The recorder in the request context, if any, receives the names of
	// the last hop only.
	rec := templates.FromContext(req.Context())
	if rec == nil {
		rec = &templates.Recorder{}
	} else {
		rec.Reset()
	}

	inner := req.Clone(templates.WithRecorder(req.Context(), rec))
	inner.RequestURI = req.URL.RequestURI()
	if inner.RemoteAddr == "" {
		inner.RemoteAddr = "127.0.0.1:0"
	}
	if inner.Body == nil {
		inner.Body = http.NoBody
	}

	rr := httptest.NewRecorder()
	t.handler.ServeHTTP(rr, inner)

	resp := rr.Result()
	resp.Request = req
	return resp, nil
}
