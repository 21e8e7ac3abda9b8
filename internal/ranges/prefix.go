package ranges

import (
	"errors"
	"strings"

	"github.com/seancfoley/ipaddress-go/ipaddr"
	log "github.com/sirupsen/logrus"
)

var errEmptyPrefix = errors.New("empty prefix")

// Canonicalize validates a published prefix and returns its network block,
// with host bits cleared. A bare address becomes a full-length prefix.
func Canonicalize(cidr string) (string, bool, error) {
	cidr = strings.Trim(cidr, " \t\r\n,\"")
	if cidr == "" {
		return "", false, errEmptyPrefix
	}
	addr, err := ipaddr.NewIPAddressString(cidr).ToAddress()
	if err != nil {
		return "", false, err
	}
	if !addr.IsPrefixed() {
		addr = addr.ToPrefixBlockLen(addr.GetBitCount())
	}
	block := addr.ToPrefixBlock()
	return block.String(), block.IsIPv6(), nil
}

// collector dedupes prefixes while a document is parsed. The same block may
// be published once per service, so the key covers region and service too.
type collector struct {
	provider string
	seen     map[string]struct{}
	prefixes []Prefix
	invalid  int
}

func newCollector(provider string) *collector {
	return &collector{provider: provider, seen: make(map[string]struct{})}
}

func (c *collector) add(cidr, region, service string) {
	canonical, ipv6, err := Canonicalize(cidr)
	if err != nil {
		c.invalid++
		log.WithFields(log.Fields{"state": c.provider, "action": "parse-cidr-range", "cidr": cidr, "errmsg": err.Error()}).Debug("skipping invalid prefix")
		return
	}
	key := canonical + "|" + region + "|" + service
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.prefixes = append(c.prefixes, Prefix{CIDR: canonical, Provider: c.provider, Region: region, Service: service, IPv6: ipv6})
}

func (c *collector) done() []Prefix {
	fields := log.Fields{"state": c.provider, "action": "parse-cidr-range"}
	if c.invalid > 0 {
		log.WithFields(fields).Warnf("skipped %d invalid prefixes", c.invalid)
	}
	log.WithFields(fields).Infof("parsed %d prefixes", len(c.prefixes))
	return c.prefixes
}
