package bucket

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web"
)

var ErrNotListable = errors.New("bucket is not publicly listable")

// RootResult is the answer to an anonymous request for the bucket root.
type RootResult struct {
	StatusCode   int
	Server       string
	BucketRegion string
	Listable     bool
	Error        *APIError

	// first listing page, handed to List so it is not requested twice
	page *web.Response
}

type Client struct {
	HTTP     web.Client
	Timeout  time.Duration
	MaxPages int
}

func NewClient(client web.Client, timeout time.Duration, maxPages int) *Client {
	return &Client{HTTP: client, Timeout: timeout, MaxPages: maxPages}
}

// CheckRoot requests the bucket root once and reports whether anonymous
// listing is allowed.
func (c *Client) CheckRoot(ctx context.Context, endpoint *Endpoint) (*RootResult, error) {
	resp, err := web.Get(ctx, c.HTTP, endpoint.ListURL(""), c.Timeout)
	if err != nil {
		return nil, err
	}
	result := &RootResult{
		StatusCode:   resp.StatusCode,
		Server:       resp.Server,
		BucketRegion: resp.BucketRegion,
		Listable:     resp.StatusCode == fasthttp.StatusOK,
	}
	fields := log.Fields{"state": "root", "action": "list-bucket", "bucket": endpoint.Bucket, "status": resp.StatusCode}
	if result.Listable {
		result.page = resp
		log.WithFields(fields).Info("bucket allows anonymous listing")
		return result, nil
	}
	if apiErr, err := ParseError(resp.Body); err == nil {
		apiErr.StatusCode = resp.StatusCode
		result.Error = apiErr
		fields["code"] = apiErr.Code
	}
	log.WithFields(fields).Info("bucket does not allow anonymous listing")
	return result, nil
}

// List walks every page of the bucket listing, following the marker while
// the result is truncated. When root came from CheckRoot on a listable
// bucket its page is used as the first one. Listing stops after MaxPages
// pages when set.
func (c *Client) List(ctx context.Context, endpoint *Endpoint, root *RootResult) ([]Object, error) {
	var objects []Object
	marker := ""
	for page := 1; ; page++ {
		var resp *web.Response
		if page == 1 && root != nil && root.page != nil {
			resp = root.page
		} else {
			var err error
			resp, err = web.Get(ctx, c.HTTP, endpoint.ListURL(marker), c.Timeout)
			if err != nil {
				return objects, err
			}
		}
		if resp.StatusCode != fasthttp.StatusOK {
			if apiErr, perr := ParseError(resp.Body); perr == nil {
				apiErr.StatusCode = resp.StatusCode
				return objects, fmt.Errorf("%w: %w", ErrNotListable, apiErr)
			}
			return objects, fmt.Errorf("%w: status %d", ErrNotListable, resp.StatusCode)
		}
		if isHTML(resp.ContentType, resp.Body) {
			htmlObjects, err := ParseHTMLIndex(resp.Body)
			if err != nil {
				return objects, err
			}
			log.WithFields(log.Fields{"state": "list", "action": "list-bucket", "bucket": endpoint.Bucket}).Infof("found %d links on index page", len(htmlObjects))
			return append(objects, htmlObjects...), nil
		}
		listing, err := ParseListing(resp.Body)
		if err != nil {
			return objects, err
		}
		objects = append(objects, listing.Contents...)
		fields := log.Fields{"state": "list", "action": "list-bucket", "bucket": endpoint.Bucket, "page": page}
		log.WithFields(fields).Debugf("got %d keys", len(listing.Contents))

		next := listing.NextPageMarker()
		if next == "" {
			break
		}
		if next == marker {
			log.WithFields(fields).Warn("listing marker did not advance. stopping")
			break
		}
		if c.MaxPages > 0 && page >= c.MaxPages {
			log.WithFields(fields).Warnf("reached page limit of %d. listing is incomplete", c.MaxPages)
			break
		}
		marker = next
	}
	log.WithFields(log.Fields{"state": "list", "action": "list-bucket", "bucket": endpoint.Bucket}).Infof("listed %d keys", len(objects))
	return objects, nil
}
