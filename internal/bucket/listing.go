package bucket

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Object struct {
	Key          string `xml:"Key" json:"key"`
	LastModified string `xml:"LastModified" json:"last_modified,omitempty"`
	ETag         string `xml:"ETag" json:"etag,omitempty"`
	Size         int64  `xml:"Size" json:"size"`
}

// Listing is one page of a ListBucketResult document. The namespace is not
// checked, S3 compatible services disagree on it.
type Listing struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	Marker      string   `xml:"Marker"`
	NextMarker  string   `xml:"NextMarker"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []Object `xml:"Contents"`
}

// NextPageMarker is the marker for the following page, or "" when the
// listing is complete.
func (l *Listing) NextPageMarker() string {
	if !l.IsTruncated {
		return ""
	}
	if l.NextMarker != "" {
		return l.NextMarker
	}
	if len(l.Contents) == 0 {
		return ""
	}
	return l.Contents[len(l.Contents)-1].Key
}

type APIError struct {
	XMLName    xml.Name `xml:"Error" json:"-"`
	Code       string   `xml:"Code" json:"code"`
	Message    string   `xml:"Message" json:"message"`
	Resource   string   `xml:"Resource" json:"resource,omitempty"`
	RequestID  string   `xml:"RequestId" json:"request_id,omitempty"`
	StatusCode int      `xml:"-" json:"status_code"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

func ParseListing(body []byte) (*Listing, error) {
	listing := &Listing{}
	if err := xml.Unmarshal(body, listing); err != nil {
		return nil, fmt.Errorf("error parsing bucket listing: %w", err)
	}
	return listing, nil
}

func ParseError(body []byte) (*APIError, error) {
	apiErr := &APIError{}
	if err := xml.Unmarshal(body, apiErr); err != nil {
		return nil, fmt.Errorf("error parsing error document: %w", err)
	}
	return apiErr, nil
}

// ParseHTMLIndex reads a website style index page and returns the objects
// its links point at. Links leaving the bucket are ignored.
func ParseHTMLIndex(body []byte) ([]Object, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing index page: %w", err)
	}
	seen := make(map[string]bool)
	var objects []Object
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		key, ok := keyFromHref(href)
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		objects = append(objects, Object{Key: key})
	})
	return objects, nil
}

func keyFromHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "./")
	key = strings.TrimLeft(key, "/")
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return "", false
	}
	return key, true
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
