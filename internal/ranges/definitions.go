// Package ranges downloads the IP range documents published by cloud
// providers, keeps them in an on-disk cache and indexes the resulting CIDR
// blocks for membership tests.
package ranges

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	AWS_IP_RANGES_URL          = "https://ip-ranges.amazonaws.com/ip-ranges.json"
	CLOUDFLARE_IPv4_RANGES_URL = "https://www.cloudflare.com/ips-v4"
	DIGITALOCEAN_IP_RANGES_URL = "https://www.digitalocean.com/geo/google.csv"
	GOOGLE_CLOUD_IP_RANGES_URL = "https://www.gstatic.com/ipranges/cloud.json"
	GOOGLE_IP_RANGES_URL       = "https://www.gstatic.com/ipranges/goog.json"
	ORACLE_CLOUD_IP_RANGES_URL = "https://docs.oracle.com/en-us/iaas/tools/public_ip_ranges.json"
)

// Prefix is one published CIDR block together with whatever the provider
// said about it.
type Prefix struct {
	CIDR     string `json:"cidr"`
	Provider string `json:"provider"`
	Region   string `json:"region"`
	Service  string `json:"service"`
	IPv6     bool   `json:"ipv6"`
}

// Source is a provider's published range document.
type Source interface {
	Name() string
	URL() string
	Parse(body []byte, filter Filter) ([]Prefix, error)
}

// Filter restricts parsed prefixes by region and service. A nil expression
// matches everything.
type Filter struct {
	Region  *regexp.Regexp
	Service *regexp.Regexp
}

func NewFilter(regionRegex, serviceRegex string) (Filter, error) {
	var filter Filter
	if regionRegex != "" {
		re, err := regexp.Compile(regionRegex)
		if err != nil {
			return filter, fmt.Errorf("could not compile region regex: %w", err)
		}
		filter.Region = re
	}
	if serviceRegex != "" {
		re, err := regexp.Compile(serviceRegex)
		if err != nil {
			return filter, fmt.Errorf("could not compile service regex: %w", err)
		}
		filter.Service = re
	}
	return filter, nil
}

func (f Filter) Match(region, service string) bool {
	if f.Region != nil && !f.Region.MatchString(region) {
		return false
	}
	if f.Service != nil && !f.Service.MatchString(service) {
		return false
	}
	return true
}

var sources = map[string]Source{
	"aws":          AWS{},
	"gcp":          GCP{},
	"google":       Google{},
	"oracle":       Oracle{},
	"digitalocean": DigitalOcean{},
	"cloudflare":   Cloudflare{},
}

func GetSource(name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "digital-ocean" || name == "do" {
		name = "digitalocean"
	} else if name == "oci" {
		name = "oracle"
	}
	if source, ok := sources[name]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("unknown cloud service provider: %s", name)
}

// Sources returns every known source ordered by name.
func Sources() []Source {
	all := make([]Source, 0, len(sources))
	for _, source := range sources {
		all = append(all, source)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}
