// Package webtest serves fasthttp handlers over an in-memory listener so
// tests never touch the network.
package webtest

import (
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// NewClient starts handler on an in-memory listener and returns a client
// that dials it for every host.
func NewClient(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go server.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })
	return &fasthttp.Client{
		DisablePathNormalizing: true,
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
}
