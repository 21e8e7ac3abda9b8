package web_test

import (
	"context"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web"
	"github.com/HarshVaragiya/pailfrog/internal/web/webtest"
)

func TestGetCopiesResponse(t *testing.T) {
	client := webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.UserAgent()) != web.UserAgent {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.Response.Header.Set(fasthttp.HeaderServer, "AmazonS3")
		ctx.Response.Header.Set("x-amz-bucket-region", "eu-west-1")
		ctx.SetContentType("application/xml")
		ctx.SetBodyString("<ListBucketResult/>")
	})

	resp, err := web.Get(context.Background(), client, "http://bucket.test/", time.Second)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != fasthttp.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Server != "AmazonS3" {
		t.Fatalf("server = %q, want AmazonS3", resp.Server)
	}
	if resp.BucketRegion != "eu-west-1" {
		t.Fatalf("bucket region = %q, want eu-west-1", resp.BucketRegion)
	}
	if string(resp.Body) != "<ListBucketResult/>" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestGetCancelledContext(t *testing.T) {
	client := webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := web.Get(ctx, client, "http://bucket.test/", time.Second); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
