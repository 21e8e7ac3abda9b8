package ranges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// GCP is the Google Cloud customer range list. Google is the list Google
// serves its own APIs from, Cloud Storage included. Both share one format.
type GCP struct {
}

type Google struct {
}

type GcpPrefix struct {
	Ipv4Prefix string `json:"ipv4Prefix"` // IPv4 Cidr that usually appears
	Ipv6Prefix string `json:"ipv6Prefix"` // Ipv6 Cidr that appears sometimes
	Service    string `json:"service"`
	Scope      string `json:"scope"` // Region Key, absent from goog.json
}

type GcpIPRangeResponse struct {
	SyncToken    string       `json:"syncToken"`
	CreationTime string       `json:"creationTime"`
	Prefixes     []*GcpPrefix `json:"prefixes"`
}

func (gcp GCP) Name() string { return "gcp" }

func (gcp GCP) URL() string { return GOOGLE_CLOUD_IP_RANGES_URL }

func (gcp GCP) Parse(body []byte, filter Filter) ([]Prefix, error) {
	return parseGooglePrefixes(gcp.Name(), body, filter, "Google Cloud")
}

func (google Google) Name() string { return "google" }

func (google Google) URL() string { return GOOGLE_IP_RANGES_URL }

func (google Google) Parse(body []byte, filter Filter) ([]Prefix, error) {
	return parseGooglePrefixes(google.Name(), body, filter, "Google")
}

func parseGooglePrefixes(provider string, body []byte, filter Filter, defaultService string) ([]Prefix, error) {
	var ipRangesResponse GcpIPRangeResponse
	c := newCollector(provider)
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		if err := dec.Decode(&ipRangesResponse); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error parsing %s ip ranges: %w", provider, err)
		}
		for _, prefix := range ipRangesResponse.Prefixes {
			service := prefix.Service
			if service == "" {
				service = defaultService
			}
			if !filter.Match(prefix.Scope, service) {
				continue
			}
			if prefix.Ipv4Prefix != "" {
				c.add(prefix.Ipv4Prefix, prefix.Scope, service)
			}
			if prefix.Ipv6Prefix != "" {
				c.add(prefix.Ipv6Prefix, prefix.Scope, service)
			}
		}
	}
	return c.done(), nil
}
