// Package investigate runs the full check of one bucket: range membership,
// anonymous listing, harvesting and enrichment.
package investigate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/HarshVaragiya/pailfrog/internal/bucket"
	"github.com/HarshVaragiya/pailfrog/internal/enrich"
	"github.com/HarshVaragiya/pailfrog/internal/ranges"
	"github.com/HarshVaragiya/pailfrog/internal/report"
	"github.com/HarshVaragiya/pailfrog/internal/resolve"
)

var ErrNotInRange = errors.New("bucket address is not in a known range")

var (
	bucketsChecked  atomic.Int64
	bucketsInRange  atomic.Int64
	bucketsListable atomic.Int64
	objectsListed   atomic.Int64
	objectsSaved    atomic.Int64
	bytesSaved      atomic.Int64
)

// Stats returns the counters of every check run by this process.
func Stats() map[string]int64 {
	return map[string]int64{
		"buckets-checked":  bucketsChecked.Load(),
		"buckets-in-range": bucketsInRange.Load(),
		"buckets-listable": bucketsListable.Load(),
		"objects-listed":   objectsListed.Load(),
		"objects-saved":    objectsSaved.Load(),
		"bytes-saved":      bytesSaved.Load(),
	}
}

type Config struct {
	Provider     string
	Region       string
	HTTPS        bool
	UpdateRanges bool
	RegionRegex  string
	ServiceRegex string
	JARM         bool
	JARMRetries  int
}

type Investigator struct {
	Config    Config
	Ranges    *ranges.Manager
	Resolver  resolve.Resolver
	Buckets   *bucket.Client
	Harvester *bucket.Harvester
	GeoIP     *enrich.GeoIP
}

// Run checks domain and returns what was found. ErrNotInRange is returned
// together with the report when no address of the bucket host belongs to
// the provider's published ranges. Any other error is also recorded in the
// report's Error field.
func (inv *Investigator) Run(ctx context.Context, domain string) (*report.Report, error) {
	template, err := bucket.GetTemplate(inv.Config.Provider)
	if err != nil {
		return nil, err
	}
	bucketsChecked.Add(1)
	r := report.New(domain, template.Provider)
	err = inv.run(ctx, r, template)
	if err != nil && !errors.Is(err, ErrNotInRange) {
		r.Error = err.Error()
	}
	return r, err
}

func (inv *Investigator) run(ctx context.Context, r *report.Report, template bucket.Template) error {
	domain := r.Domain
	fields := log.Fields{"state": "investigate", "domain": domain, "provider": template.Provider}

	endpoint, err := bucket.NewEndpoint(template, domain, inv.Config.Region, inv.Config.HTTPS)
	if err != nil {
		return err
	}
	r.Host = endpoint.Host
	r.URL = endpoint.BaseURL
	log.WithFields(fields).WithField("action", "endpoint").Infof("bucket for %s is at %s", domain, endpoint.BaseURL)

	index, err := inv.loadIndex(ctx, template)
	if err != nil {
		return err
	}

	ips, err := inv.Resolver.LookupIP(ctx, endpoint.Host)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", endpoint.Host, err)
	}
	for _, ip := range ips {
		r.IPs = append(r.IPs, ip.String())
	}
	log.WithFields(fields).WithField("action", "resolve").Infof("IP addresses of host are: %v", r.IPs)

	matched := inv.match(r, index, ips)
	if matched == nil {
		log.WithFields(fields).WithField("action", "match").Warnf("no address of %s is in %s ranges", endpoint.Host, template.RangeSource)
		return ErrNotInRange
	}
	bucketsInRange.Add(1)
	log.WithFields(fields).WithField("action", "match").Infof("bucket found in range %s (%s)", r.MatchedRange, r.Region)

	if err := inv.list(ctx, r, endpoint); err != nil {
		return err
	}
	inv.enrich(ctx, r, endpoint, matched)
	return nil
}

func (inv *Investigator) loadIndex(ctx context.Context, template bucket.Template) (*ranges.Index, error) {
	source, err := ranges.GetSource(template.RangeSource)
	if err != nil {
		return nil, err
	}
	serviceRegex := inv.Config.ServiceRegex
	if serviceRegex == "" {
		serviceRegex = template.Service
	}
	filter, err := ranges.NewFilter(inv.Config.RegionRegex, serviceRegex)
	if err != nil {
		return nil, err
	}
	prefixes, err := inv.Ranges.Ranges(ctx, source, filter, inv.Config.UpdateRanges)
	if err != nil {
		return nil, fmt.Errorf("error loading %s ranges: %w", source.Name(), err)
	}
	return ranges.NewIndex(prefixes)
}

func (inv *Investigator) match(r *report.Report, index *ranges.Index, ips []net.IP) net.IP {
	for _, ip := range ips {
		prefixes, err := index.Lookup(ip)
		if err != nil || len(prefixes) == 0 {
			continue
		}
		// most specific network comes last
		prefix := prefixes[len(prefixes)-1]
		r.InRange = true
		r.MatchedIP = ip.String()
		r.MatchedRange = prefix.CIDR
		r.Region = prefix.Region
		r.Service = prefix.Service
		return ip
	}
	return nil
}

func (inv *Investigator) list(ctx context.Context, r *report.Report, endpoint *bucket.Endpoint) error {
	fields := log.Fields{"state": "investigate", "action": "list", "domain": r.Domain}
	root, err := inv.Buckets.CheckRoot(ctx, endpoint)
	if err != nil {
		return err
	}
	r.ListStatus = root.StatusCode
	r.Server = root.Server
	r.BucketRegion = root.BucketRegion
	r.Listable = root.Listable
	if root.Error != nil {
		r.ErrorCode = root.Error.Code
	}
	if !root.Listable {
		return nil
	}
	bucketsListable.Add(1)

	objects, err := inv.Buckets.List(ctx, endpoint, root)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(fields).WithField("errmsg", err.Error()).Warn("listing ended early")
	}
	r.ObjectCount = len(objects)
	objectsListed.Add(int64(len(objects)))
	if len(objects) == 0 || inv.Harvester == nil {
		return nil
	}

	result, err := inv.Harvester.Harvest(ctx, endpoint, objects)
	if result != nil {
		r.Results = result.Results
		r.Saved = result.Saved
		r.Skipped = len(result.Skipped)
		r.Failed = result.Failed
		r.BytesSaved = result.BytesSaved
		objectsSaved.Add(int64(len(result.Saved)))
		bytesSaved.Add(result.BytesSaved)
	}
	return err
}

func (inv *Investigator) enrich(ctx context.Context, r *report.Report, endpoint *bucket.Endpoint, ip net.IP) {
	fields := log.Fields{"state": "investigate", "action": "enrich", "domain": r.Domain}
	if inv.Config.JARM {
		hash, err := enrich.JARM(ctx, endpoint.Host, ip.String(), 443, inv.Config.JARMRetries)
		if err != nil {
			log.WithFields(fields).WithField("errmsg", err.Error()).Warn("error grabbing JARM fingerprint")
		} else {
			r.JARM = hash
		}
	}
	if inv.GeoIP != nil {
		location, err := inv.GeoIP.Lookup(ip)
		if err != nil {
			log.WithFields(fields).WithField("errmsg", err.Error()).Warn("error looking up address location")
			return
		}
		r.Country = location.Country
		r.ASN = location.ASN
		r.ASOrg = location.ASOrg
	}
}
