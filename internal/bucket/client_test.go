package bucket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web/webtest"
)

func listingServer(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Server", "AmazonS3")
	ctx.Response.Header.Set("x-amz-bucket-region", "us-east-1")
	ctx.SetContentType("application/xml")
	switch string(ctx.QueryArgs().Peek("marker")) {
	case "":
		ctx.SetBodyString(listingPage1)
	case "dir/":
		ctx.SetBodyString(listingPage2)
	default:
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
	}
}

func testEndpoint(t *testing.T) *Endpoint {
	t.Helper()
	template, _ := GetTemplate("aws")
	endpoint, err := NewEndpoint(template, "example", "", false)
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	return endpoint
}

func TestCheckRootListable(t *testing.T) {
	client := NewClient(webtest.NewClient(t, listingServer), time.Second, 0)
	result, err := client.CheckRoot(context.Background(), testEndpoint(t))
	if err != nil {
		t.Fatalf("check root: %v", err)
	}
	if !result.Listable || result.StatusCode != 200 || result.Server != "AmazonS3" || result.BucketRegion != "us-east-1" {
		t.Fatalf("unexpected root result %+v", result)
	}
	if result.page == nil {
		t.Fatalf("expected first page to be kept")
	}
}

func TestListReusesRootPage(t *testing.T) {
	var mu sync.Mutex
	requests := make(map[string]int)
	client := NewClient(webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		requests[string(ctx.RequestURI())]++
		mu.Unlock()
		listingServer(ctx)
	}), time.Second, 0)
	endpoint := testEndpoint(t)
	root, err := client.CheckRoot(context.Background(), endpoint)
	if err != nil {
		t.Fatalf("check root: %v", err)
	}
	objects, err := client.List(context.Background(), endpoint, root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 4 {
		t.Fatalf("got %d objects, want 4", len(objects))
	}
	if requests["/"] != 1 || requests["/?marker=dir%2F"] != 1 || len(requests) != 2 {
		t.Fatalf("unexpected requests %v", requests)
	}
}

func TestCheckRootDenied(t *testing.T) {
	client := NewClient(webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetBodyString(accessDenied)
	}), time.Second, 0)
	result, err := client.CheckRoot(context.Background(), testEndpoint(t))
	if err != nil {
		t.Fatalf("check root: %v", err)
	}
	if result.Listable || result.Error == nil || result.Error.Code != "AccessDenied" || result.Error.StatusCode != 403 {
		t.Fatalf("unexpected root result %+v", result)
	}
	if result.page != nil {
		t.Fatalf("denied root should not keep a page")
	}
}

func TestListFollowsMarker(t *testing.T) {
	client := NewClient(webtest.NewClient(t, listingServer), time.Second, 0)
	objects, err := client.List(context.Background(), testEndpoint(t), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 4 {
		t.Fatalf("got %d objects, want 4", len(objects))
	}
	if objects[3].Key != "secret.key" {
		t.Fatalf("last key = %s", objects[3].Key)
	}
}

func TestListPageLimit(t *testing.T) {
	client := NewClient(webtest.NewClient(t, listingServer), time.Second, 1)
	objects, err := client.List(context.Background(), testEndpoint(t), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(objects))
	}
}

func TestListStopsWhenMarkerRepeats(t *testing.T) {
	client := NewClient(webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`<ListBucketResult><IsTruncated>true</IsTruncated><NextMarker>same</NextMarker><Contents><Key>k</Key></Contents></ListBucketResult>`)
	}), time.Second, 0)
	objects, err := client.List(context.Background(), testEndpoint(t), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(objects))
	}
}

func TestListHTMLIndex(t *testing.T) {
	client := NewClient(webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString(htmlIndex)
	}), time.Second, 0)
	objects, err := client.List(context.Background(), testEndpoint(t), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("got %d objects, want 3", len(objects))
	}
}

func TestListNotListable(t *testing.T) {
	client := NewClient(webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetBodyString(accessDenied)
	}), time.Second, 0)
	_, err := client.List(context.Background(), testEndpoint(t), nil)
	if !errors.Is(err, ErrNotListable) {
		t.Fatalf("err = %v, want ErrNotListable", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "AccessDenied" {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
}
