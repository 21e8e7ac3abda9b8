// Package bucket checks, lists and harvests anonymously readable object
// storage buckets.
package bucket

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const DEFAULT_DIGITALOCEAN_REGION = "nyc3"

// Template describes how a provider addresses a bucket and which published
// range list its storage endpoints come from.
type Template struct {
	Provider    string
	HostFormat  string
	RangeSource string
	Service     string
}

var templates = map[string]Template{
	"aws": {
		Provider:    "aws",
		HostFormat:  "%s.s3.amazonaws.com",
		RangeSource: "aws",
		Service:     "^S3$",
	},
	"google": {
		Provider:    "google",
		HostFormat:  "%s.storage.googleapis.com",
		RangeSource: "google",
	},
	"digitalocean": {
		Provider:    "digitalocean",
		HostFormat:  "%s.%s.digitaloceanspaces.com",
		RangeSource: "digitalocean",
	},
}

var bucketNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,253}[A-Za-z0-9]$`)

func GetTemplate(provider string) (Template, error) {
	switch strings.ToLower(provider) {
	case "s3":
		provider = "aws"
	case "gcs", "gcp":
		provider = "google"
	case "do", "digital-ocean", "spaces":
		provider = "digitalocean"
	}
	template, ok := templates[strings.ToLower(provider)]
	if !ok {
		return Template{}, fmt.Errorf("unknown bucket provider %q (valid: %s)", provider, strings.Join(Providers(), ", "))
	}
	return template, nil
}

func Providers() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Endpoint struct {
	Provider string
	Bucket   string
	Host     string
	BaseURL  string
}

// NewEndpoint builds the virtual-hosted address of bucket. region is only
// used by providers that put it in the host name.
func NewEndpoint(template Template, bucket, region string, https bool) (*Endpoint, error) {
	bucket = strings.TrimSuffix(strings.TrimSpace(bucket), ".")
	if !bucketNameRegex.MatchString(bucket) || strings.Contains(bucket, "..") {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	var host string
	if strings.Count(template.HostFormat, "%s") == 2 {
		if region == "" {
			region = DEFAULT_DIGITALOCEAN_REGION
		}
		host = fmt.Sprintf(template.HostFormat, bucket, region)
	} else {
		host = fmt.Sprintf(template.HostFormat, bucket)
	}
	scheme := "http"
	if https {
		scheme = "https"
	}
	return &Endpoint{
		Provider: template.Provider,
		Bucket:   bucket,
		Host:     host,
		BaseURL:  scheme + "://" + host,
	}, nil
}

// ObjectURL escapes each path segment of key on its own so '/' keeps
// separating them. '+' is escaped too, S3 reads it as a space.
func (e *Endpoint) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = strings.ReplaceAll(url.PathEscape(segment), "+", "%2B")
	}
	return e.BaseURL + "/" + strings.Join(segments, "/")
}

func (e *Endpoint) ListURL(marker string) string {
	if marker == "" {
		return e.BaseURL + "/"
	}
	return e.BaseURL + "/?marker=" + url.QueryEscape(marker)
}
