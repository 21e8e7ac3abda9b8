package investigate

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/bucket"
	"github.com/HarshVaragiya/pailfrog/internal/ranges"
	"github.com/HarshVaragiya/pailfrog/internal/report"
	"github.com/HarshVaragiya/pailfrog/internal/web/webtest"
)

const awsRanges = `{
  "prefixes": [
    {"ip_prefix": "52.216.0.0/15", "region": "us-east-1", "service": "S3"},
    {"ip_prefix": "54.230.0.0/16", "region": "GLOBAL", "service": "CLOUDFRONT"}
  ],
  "ipv6_prefixes": []
}`

const bucketListing = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>example</Name>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>index.html</Key><Size>11</Size></Contents>
  <Contents><Key>private/keys.txt</Key><Size>4</Size></Contents>
  <Contents><Key>../escape.txt</Key><Size>3</Size></Contents>
</ListBucketResult>`

type staticResolver []net.IP

func (r staticResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return r, nil
}

type failingResolver struct{}

func (failingResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return nil, errors.New("no such host")
}

func bucketHandler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.RequestURI()) {
	case "/":
		ctx.Response.Header.Set("Server", "AmazonS3")
		ctx.SetContentType("application/xml")
		ctx.SetBodyString(bucketListing)
	case "/index.html":
		ctx.SetBodyString("hello world")
	case "/../escape.txt":
		ctx.SetBodyString("abc")
	default:
		ctx.SetStatusCode(fasthttp.StatusForbidden)
	}
}

func newInvestigator(t *testing.T, ips ...string) (*Investigator, string) {
	t.Helper()
	cacheDir := t.TempDir()
	cache := ranges.NewCache(cacheDir)
	if err := cache.Store("aws", []byte(awsRanges)); err != nil {
		t.Fatalf("store ranges: %v", err)
	}
	client := webtest.NewClient(t, bucketHandler)
	outputDir := t.TempDir()

	var resolved staticResolver
	for _, ip := range ips {
		resolved = append(resolved, net.ParseIP(ip))
	}
	return &Investigator{
		Config:   Config{Provider: "aws"},
		Ranges:   ranges.NewManager(cache, client),
		Resolver: resolved,
		Buckets:  bucket.NewClient(client, time.Second, 0),
		Harvester: bucket.NewHarvester(client, time.Second, bucket.Options{
			OutputDir: outputDir,
			Download:  true,
			Threads:   2,
		}),
	}, outputDir
}

func TestRunHarvestsListableBucket(t *testing.T) {
	inv, outputDir := newInvestigator(t, "52.217.10.20")
	r, err := inv.Run(context.Background(), "example")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !r.InRange || r.MatchedRange != "52.216.0.0/15" || r.Region != "us-east-1" || r.Service != "S3" {
		t.Fatalf("unexpected match %+v", r)
	}
	if !r.Listable || r.ListStatus != 200 || r.Server != "AmazonS3" || r.ObjectCount != 3 {
		t.Fatalf("unexpected listing result %+v", r)
	}
	if len(r.Allowed()) != 2 || len(r.Denied()) != 1 {
		t.Fatalf("allowed %v denied %v", r.Allowed(), r.Denied())
	}
	body, err := os.ReadFile(filepath.Join(outputDir, "example", "index.html"))
	if err != nil || string(body) != "hello world" {
		t.Fatalf("saved index.html = %q, %v", body, err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "example", "escape.txt")); err != nil {
		t.Fatalf("expected escaping key to be saved inside the bucket directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("key escaped the bucket directory")
	}
}

func TestRunNotInRange(t *testing.T) {
	inv, _ := newInvestigator(t, "54.230.1.1", "10.0.0.1")
	r, err := inv.Run(context.Background(), "example")
	if !errors.Is(err, ErrNotInRange) {
		t.Fatalf("err = %v, want ErrNotInRange", err)
	}
	if r == nil || r.InRange || len(r.IPs) != 2 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.ListStatus != 0 {
		t.Fatalf("bucket root should not be requested when not in range")
	}
}

func TestRunRecordsResolveError(t *testing.T) {
	inv, _ := newInvestigator(t)
	inv.Resolver = failingResolver{}
	r, err := inv.Run(context.Background(), "example")
	if err == nil || errors.Is(err, ErrNotInRange) {
		t.Fatalf("err = %v, want resolve error", err)
	}
	if r == nil || r.Error != err.Error() {
		t.Fatalf("report error = %q, want %q", r.Error, err)
	}
	var buf bytes.Buffer
	report.Print(&buf, r)
	if strings.Contains(buf.String(), "No address of") {
		t.Fatalf("resolve failure printed as out of range:\n%s", buf.String())
	}
}

func TestRunNotInRangeLeavesErrorEmpty(t *testing.T) {
	inv, _ := newInvestigator(t, "10.0.0.1")
	r, err := inv.Run(context.Background(), "example")
	if !errors.Is(err, ErrNotInRange) {
		t.Fatalf("err = %v, want ErrNotInRange", err)
	}
	if r.Error != "" {
		t.Fatalf("report error = %q, want empty", r.Error)
	}
}

func TestRunServiceOverride(t *testing.T) {
	inv, _ := newInvestigator(t, "54.230.1.1")
	inv.Config.ServiceRegex = "CLOUDFRONT"
	inv.Harvester = nil
	r, err := inv.Run(context.Background(), "example")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Service != "CLOUDFRONT" || r.ObjectCount != 3 || len(r.Results) != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestRunUnknownProvider(t *testing.T) {
	inv, _ := newInvestigator(t, "52.217.10.20")
	inv.Config.Provider = "azure"
	if _, err := inv.Run(context.Background(), "example"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestStatsCountChecks(t *testing.T) {
	before := Stats()["buckets-checked"]
	inv, _ := newInvestigator(t, "10.0.0.1")
	inv.Run(context.Background(), "example")
	if got := Stats()["buckets-checked"] - before; got != 1 {
		t.Fatalf("buckets-checked advanced by %d, want 1", got)
	}
}
