package ranges

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

type Cloudflare struct {
}

func (cloudflare Cloudflare) Name() string { return "cloudflare" }

func (cloudflare Cloudflare) URL() string { return CLOUDFLARE_IPv4_RANGES_URL }

func (cloudflare Cloudflare) Parse(body []byte, filter Filter) ([]Prefix, error) {
	if filter.Region != nil {
		log.WithFields(log.Fields{"state": "Cloudflare", "action": "parse-cidr-range"}).Warning("region filtering not supported!")
	}
	c := newCollector(cloudflare.Name())
	for _, cidr := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(cidr) == "" {
			continue
		}
		c.add(cidr, "", "")
	}
	return c.done(), nil
}
