package ranges

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type DigitalOcean struct {
}

func (digitalOcean DigitalOcean) Name() string { return "digitalocean" }

func (digitalOcean DigitalOcean) URL() string { return DIGITALOCEAN_IP_RANGES_URL }

// Parse reads the geofeed CSV: cidr,country,region,city,postcode.
func (digitalOcean DigitalOcean) Parse(body []byte, filter Filter) ([]Prefix, error) {
	c := newCollector(digitalOcean.Name())
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("error parsing DigitalOcean ip ranges: %w", err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		regionNameString := ""
		if len(record) >= 4 {
			regionNameString = strings.Join(record[1:4], "_")
		}
		if filter.Match(regionNameString, "") {
			c.add(record[0], regionNameString, "")
		}
	}
	return c.done(), nil
}
