package bucket

import (
	"reflect"
	"testing"
)

const listingPage1 = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>example</Name>
  <Prefix></Prefix>
  <Marker></Marker>
  <MaxKeys>2</MaxKeys>
  <IsTruncated>true</IsTruncated>
  <Contents><Key>a.txt</Key><LastModified>2017-02-12T21:40:23.000Z</LastModified><ETag>"d41d8cd98f00b204e9800998ecf8427e"</ETag><Size>5</Size></Contents>
  <Contents><Key>dir/</Key><Size>0</Size></Contents>
</ListBucketResult>`

const listingPage2 = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <Name>example</Name>
  <Marker>dir/</Marker>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>dir/b.txt</Key><Size>3</Size></Contents>
  <Contents><Key>secret.key</Key><Size>4</Size></Contents>
</ListBucketResult>`

const accessDenied = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message><RequestId>ABC123</RequestId></Error>`

const htmlIndex = `<!DOCTYPE html>
<html><body>
<a href="../">Parent</a>
<a href="#top">top</a>
<a href="https://elsewhere.example.com/x">external</a>
<a href="report%202020.pdf">report</a>
<a href="/images/logo.png">logo</a>
<a href="./notes.txt">notes</a>
<a href="notes.txt">notes again</a>
<a href="?sort=name">sort</a>
</body></html>`

func TestParseListing(t *testing.T) {
	listing, err := ParseListing([]byte(listingPage1))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if listing.Name != "example" || !listing.IsTruncated || len(listing.Contents) != 2 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if listing.Contents[0].Size != 5 || listing.Contents[0].Key != "a.txt" {
		t.Fatalf("unexpected object %+v", listing.Contents[0])
	}
	if got := listing.NextPageMarker(); got != "dir/" {
		t.Fatalf("next marker = %q, want dir/", got)
	}

	listing.NextMarker = "explicit"
	if got := listing.NextPageMarker(); got != "explicit" {
		t.Fatalf("next marker = %q, want explicit", got)
	}
	listing.IsTruncated = false
	if got := listing.NextPageMarker(); got != "" {
		t.Fatalf("next marker = %q, want empty", got)
	}
}

func TestParseListingRejectsOtherDocuments(t *testing.T) {
	if _, err := ParseListing([]byte(accessDenied)); err == nil {
		t.Fatalf("expected error parsing error document as listing")
	}
}

func TestParseError(t *testing.T) {
	apiErr, err := ParseError([]byte(accessDenied))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if apiErr.Code != "AccessDenied" || apiErr.RequestID != "ABC123" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestParseHTMLIndex(t *testing.T) {
	objects, err := ParseHTMLIndex([]byte(htmlIndex))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var keys []string
	for _, object := range objects {
		keys = append(keys, object.Key)
	}
	want := []string{"report 2020.pdf", "images/logo.png", "notes.txt"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}
