package ranges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

type AWS struct {
}

type AwsIPRangeResponse struct {
	SyncToken    string           `json:"syncToken"`
	CreateDate   string           `json:"createDate"`
	Prefixes     []*AwsPrefix     `json:"prefixes"`
	Ipv6Prefixes []*AwsIpv6Prefix `json:"ipv6_prefixes"`
}

type AwsPrefix struct {
	IPPrefix string `json:"ip_prefix"`
	Region   string `json:"region"`
	Service  string `json:"service"`
	// NetworkBorderGroup string `json:"network_border_group"` IGNORED
}

type AwsIpv6Prefix struct {
	Ipv6Prefix string `json:"ipv6_prefix"`
	Region     string `json:"region"`
	Service    string `json:"service"`
}

func (aws AWS) Name() string { return "aws" }

func (aws AWS) URL() string { return AWS_IP_RANGES_URL }

func (aws AWS) Parse(body []byte, filter Filter) ([]Prefix, error) {
	var ipRangesResponse AwsIPRangeResponse
	c := newCollector(aws.Name())
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		if err := dec.Decode(&ipRangesResponse); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error parsing AWS ip ranges: %w", err)
		}
		log.WithFields(log.Fields{"state": "AWS", "action": "parse-cidr-range", "sync-token": ipRangesResponse.SyncToken}).Debugf("ranges created %s", ipRangesResponse.CreateDate)
		for _, prefix := range ipRangesResponse.Prefixes {
			if filter.Match(prefix.Region, prefix.Service) {
				c.add(prefix.IPPrefix, prefix.Region, prefix.Service)
			} else {
				log.WithFields(log.Fields{"state": "AWS", "action": "parse-cidr-range"}).Tracef("skipped %v from region %v service %v", prefix.IPPrefix, prefix.Region, prefix.Service)
			}
		}
		for _, prefix := range ipRangesResponse.Ipv6Prefixes {
			if filter.Match(prefix.Region, prefix.Service) {
				c.add(prefix.Ipv6Prefix, prefix.Region, prefix.Service)
			}
		}
	}
	return c.done(), nil
}
