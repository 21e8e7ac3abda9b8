// Package report holds the outcome of checking one bucket.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/table"
	"github.com/valyala/fasthttp"
)

type Report struct {
	ID           string           `json:"id"`
	Domain       string           `json:"domain"`
	Provider     string           `json:"provider"`
	Host         string           `json:"host"`
	URL          string           `json:"url"`
	IPs          []string         `json:"ips"`
	MatchedIP    string           `json:"matched_ip,omitempty"`
	MatchedRange string           `json:"matched_range,omitempty"`
	Region       string           `json:"region,omitempty"`
	Service      string           `json:"service,omitempty"`
	InRange      bool             `json:"in_range"`
	ListStatus   int              `json:"list_status,omitempty"`
	Listable     bool             `json:"listable"`
	ErrorCode    string           `json:"error_code,omitempty"`
	Server       string           `json:"server,omitempty"`
	BucketRegion string           `json:"bucket_region,omitempty"`
	ObjectCount  int              `json:"object_count"`
	Results      map[int][]string `json:"results,omitempty"`
	Saved        []string         `json:"saved,omitempty"`
	Skipped      int              `json:"skipped"`
	Failed       []string         `json:"failed,omitempty"`
	BytesSaved   int64            `json:"bytes_saved"`
	JARM         string           `json:"jarm,omitempty"`
	Country      string           `json:"country,omitempty"`
	ASN          uint             `json:"asn,omitempty"`
	ASOrg        string           `json:"as_org,omitempty"`
	Error        string           `json:"error,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

func New(domain, provider string) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Domain:    domain,
		Provider:  provider,
		Results:   make(map[int][]string),
		Timestamp: time.Now().UTC(),
	}
}

func (r *Report) Allowed() []string { return r.Results[fasthttp.StatusOK] }
func (r *Report) Denied() []string  { return r.Results[fasthttp.StatusForbidden] }
func (r *Report) Missing() []string { return r.Results[fasthttp.StatusNotFound] }

// Other returns the URLs that got any status besides 200, 403 and 404,
// sorted by status code.
func (r *Report) Other() []string {
	var codes []int
	for code := range r.Results {
		switch code {
		case fasthttp.StatusOK, fasthttp.StatusForbidden, fasthttp.StatusNotFound:
			continue
		}
		codes = append(codes, code)
	}
	sort.Ints(codes)
	var urls []string
	for _, code := range codes {
		for _, url := range r.Results[code] {
			urls = append(urls, fmt.Sprintf("%s (%d)", url, code))
		}
	}
	return urls
}

func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

var (
	headingColor = color.New(color.Bold)
	goodColor    = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	badColor     = color.New(color.FgRed)
)

// Print writes the human readable summary. Colour follows fatih/color's
// global NoColor setting.
func Print(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Testing hostname: '%s'.\n", r.Domain)
	fmt.Fprintf(w, "%s bucket for %s is at %s\n", r.Provider, r.Domain, r.URL)
	for _, ip := range r.IPs {
		fmt.Fprintf(w, "IP address of host is: %s\n", ip)
	}
	if !r.InRange {
		if r.Error != "" {
			badColor.Fprintf(w, "Check failed: %s\n", r.Error)
			return
		}
		badColor.Fprintf(w, "No address of %s is in a known %s range\n", r.Host, r.Provider)
		return
	}
	defer printError(w, r)
	goodColor.Fprintf(w, "Bucket found in %s range %s", r.Provider, r.MatchedRange)
	if r.Region != "" {
		fmt.Fprintf(w, " (%s)", r.Region)
	}
	fmt.Fprintln(w)
	if r.Country != "" || r.ASN != 0 {
		fmt.Fprintf(w, "Hosted in %s, AS%d %s\n", r.Country, r.ASN, r.ASOrg)
	}
	if r.JARM != "" {
		fmt.Fprintf(w, "JARM: %s\n", r.JARM)
	}
	fmt.Fprintf(w, "Response for %s is: %d", r.URL, r.ListStatus)
	if r.ErrorCode != "" {
		fmt.Fprintf(w, " %s", r.ErrorCode)
	}
	fmt.Fprintln(w)
	if !r.Listable {
		warnColor.Fprintln(w, "Bucket root is not publicly listable.")
		return
	}
	goodColor.Fprintln(w, "Bucket root is publicly listable. Enumerating files.")
	fmt.Fprintf(w, "%d files found\n", r.ObjectCount)

	printSection(w, "Allowed:", goodColor, r.Allowed())
	printSection(w, "Denied:", badColor, r.Denied())
	printSection(w, "Missing:", warnColor, r.Missing())
	printSection(w, "Other:", warnColor, r.Other())
	printSection(w, "Failed:", badColor, r.Failed)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Result", "Count"})
	t.AppendRow(table.Row{"allowed", len(r.Allowed())})
	t.AppendRow(table.Row{"denied", len(r.Denied())})
	t.AppendRow(table.Row{"missing", len(r.Missing())})
	t.AppendRow(table.Row{"other", len(r.Other())})
	t.AppendRow(table.Row{"failed", len(r.Failed)})
	t.AppendRow(table.Row{"skipped", r.Skipped})
	t.AppendRow(table.Row{"saved", fmt.Sprintf("%d (%d bytes)", len(r.Saved), r.BytesSaved)})
	fmt.Fprintln(w, t.Render())
}

func printError(w io.Writer, r *Report) {
	if r.Error != "" {
		badColor.Fprintf(w, "Check stopped early: %s\n", r.Error)
	}
}

func printSection(w io.Writer, title string, c *color.Color, items []string) {
	if len(items) == 0 {
		return
	}
	headingColor.Fprintln(w, title)
	for _, item := range items {
		c.Fprintf(w, "  %s\n", item)
	}
}
