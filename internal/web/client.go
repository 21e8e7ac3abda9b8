package web

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const UserAgent = "pailfrog/1.0"

// Client is the part of *fasthttp.Client used by the range fetcher and the
// bucket walker.
type Client interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

type Response struct {
	StatusCode   int
	ContentType  string
	Server       string
	BucketRegion string
	Body         []byte
}

func NewClient(insecure bool) *fasthttp.Client {
	return &fasthttp.Client{
		Name: UserAgent,
		TLSConfig: &tls.Config{
			// bucket endpoints may be reached by IP-derived names, skip validation on request
			InsecureSkipVerify: insecure,
		},
		MaxConnsPerHost:        64,
		DisablePathNormalizing: true,
	}
}

// Get issues a plain GET and copies what callers need out of the pooled
// response before releasing it.
func Get(ctx context.Context, client Client, uri string, timeout time.Duration) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(uri)
	// object keys may contain "..", "." or empty segments that must reach the server as is
	req.URI().DisablePathNormalizing = true
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(UserAgent)

	if err := client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", uri, err)
	}
	return &Response{
		StatusCode:   resp.StatusCode(),
		ContentType:  string(resp.Header.ContentType()),
		Server:       string(resp.Header.Peek(fasthttp.HeaderServer)),
		BucketRegion: string(resp.Header.Peek("x-amz-bucket-region")),
		Body:         append([]byte(nil), resp.Body()...),
	}, nil
}
