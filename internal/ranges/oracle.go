package ranges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Oracle struct {
}

type OracleRegionCidr struct {
	Cidr string   `json:"cidr"`
	Tags []string `json:"tags"`
}
type RegionsElement struct {
	Region            string              `json:"region"`
	OracleRegionCidrs []*OracleRegionCidr `json:"cidrs"`
}

type OracleIPRangeResponse struct {
	LastUpdatedTimestamp string            `json:"last_updated_timestamp"`
	RegionsElements      []*RegionsElement `json:"regions"`
}

func (oracle Oracle) Name() string { return "oracle" }

func (oracle Oracle) URL() string { return ORACLE_CLOUD_IP_RANGES_URL }

func (oracle Oracle) Parse(body []byte, filter Filter) ([]Prefix, error) {
	var ipRangesResponse OracleIPRangeResponse
	c := newCollector(oracle.Name())
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		if err := dec.Decode(&ipRangesResponse); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error parsing OCI ip ranges: %w", err)
		}
		for _, regionElement := range ipRangesResponse.RegionsElements {
			for _, cidr := range regionElement.OracleRegionCidrs {
				service := strings.Join(cidr.Tags, ",")
				if filter.Match(regionElement.Region, service) {
					c.add(cidr.Cidr, regionElement.Region, service)
				}
			}
		}
	}
	return c.done(), nil
}
