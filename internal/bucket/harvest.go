package bucket

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/ryanuber/go-glob"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/HarshVaragiya/pailfrog/internal/web"
)

var ErrUnsafeKey = errors.New("object key does not map to a local path")

// Mirror receives a copy of every saved object.
type Mirror interface {
	Upload(ctx context.Context, bucket, key, localPath string) error
}

type Options struct {
	OutputDir string
	Download  bool
	Include   []string
	Exclude   []string
	MaxSize   int64
	Threads   int
	Rate      float64
	Progress  bool
	Mirror    Mirror
}

type HarvestResult struct {
	Results    map[int][]string
	Saved      []string
	Skipped    []string
	Failed     []string
	BytesSaved int64
	mu         sync.Mutex
}

func newHarvestResult() *HarvestResult {
	return &HarvestResult{Results: make(map[int][]string)}
}

// URLs returns the object URLs answered with status code.
func (r *HarvestResult) URLs(code int) []string {
	return r.Results[code]
}

// Other returns URLs answered with anything but 200, 403 or 404.
func (r *HarvestResult) Other() []string {
	var urls []string
	for code, list := range r.Results {
		switch code {
		case fasthttp.StatusOK, fasthttp.StatusForbidden, fasthttp.StatusNotFound:
			continue
		}
		urls = append(urls, list...)
	}
	sort.Strings(urls)
	return urls
}

func (r *HarvestResult) record(code int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[code] = append(r.Results[code], url)
}

func (r *HarvestResult) saved(localPath string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saved = append(r.Saved, localPath)
	r.BytesSaved += size
}

func (r *HarvestResult) skip(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, key)
}

func (r *HarvestResult) fail(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, url)
}

func (r *HarvestResult) sort() {
	for _, urls := range r.Results {
		sort.Strings(urls)
	}
	sort.Strings(r.Saved)
	sort.Strings(r.Skipped)
	sort.Strings(r.Failed)
}

type Harvester struct {
	HTTP    web.Client
	Timeout time.Duration
	Options Options
}

func NewHarvester(client web.Client, timeout time.Duration, options Options) *Harvester {
	if options.Threads <= 0 {
		options.Threads = 1
	}
	return &Harvester{HTTP: client, Timeout: timeout, Options: options}
}

// Wanted reports whether key passes the directory, size and glob filters.
func (h *Harvester) Wanted(object Object) bool {
	if object.Key == "" || strings.HasSuffix(object.Key, "/") {
		return false
	}
	if h.Options.MaxSize > 0 && object.Size > h.Options.MaxSize {
		return false
	}
	if len(h.Options.Include) > 0 {
		matched := false
		for _, pattern := range h.Options.Include {
			if glob.Glob(pattern, object.Key) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range h.Options.Exclude {
		if glob.Glob(pattern, object.Key) {
			return false
		}
	}
	return true
}

// Harvest requests every wanted object and sorts the URLs by the status they
// were answered with. Bodies of readable objects are written under
// OutputDir/<bucket>/ unless downloading is disabled. Failures of single
// objects are recorded in the result, only cancellation aborts the run.
func (h *Harvester) Harvest(ctx context.Context, endpoint *Endpoint, objects []Object) (*HarvestResult, error) {
	result := newHarvestResult()
	var wanted []Object
	for _, object := range objects {
		if h.Wanted(object) {
			wanted = append(wanted, object)
		} else {
			result.skip(object.Key)
		}
	}
	log.WithFields(log.Fields{"state": "harvest", "action": "get-objects", "bucket": endpoint.Bucket}).Infof("requesting %d objects (%d skipped)", len(wanted), len(result.Skipped))

	var limiter *rate.Limiter
	if h.Options.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.Options.Rate), 1)
	}
	var bar *pb.ProgressBar
	if h.Options.Progress {
		bar = pb.StartNew(len(wanted))
		defer bar.Finish()
	}
	root := filepath.Join(h.Options.OutputDir, endpoint.Bucket)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(h.Options.Threads)
	for _, object := range wanted {
		if groupCtx.Err() != nil {
			break
		}
		object := object
		group.Go(func() error {
			if bar != nil {
				defer bar.Increment()
			}
			if limiter != nil {
				if err := limiter.Wait(groupCtx); err != nil {
					return err
				}
			}
			return h.fetch(groupCtx, endpoint, root, object, result)
		})
	}
	err := group.Wait()
	result.sort()
	if err == nil {
		err = ctx.Err()
	}
	return result, err
}

func (h *Harvester) fetch(ctx context.Context, endpoint *Endpoint, root string, object Object, result *HarvestResult) error {
	objectURL := endpoint.ObjectURL(object.Key)
	fields := log.Fields{"state": "harvest", "action": "get-object", "key": object.Key}
	resp, err := web.Get(ctx, h.HTTP, objectURL, h.Timeout)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(fields).WithField("errmsg", err.Error()).Warn("error requesting object")
		result.fail(objectURL)
		return nil
	}
	result.record(resp.StatusCode, objectURL)
	log.WithFields(fields).Tracef("status %d", resp.StatusCode)
	if resp.StatusCode != fasthttp.StatusOK || !h.Options.Download {
		return nil
	}

	localPath, err := SafeJoin(root, object.Key)
	if err != nil {
		log.WithFields(fields).WithField("errmsg", err.Error()).Warn("refusing to save object")
		result.fail(objectURL)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		log.WithFields(fields).WithField("errmsg", err.Error()).Error("error creating directory")
		result.fail(objectURL)
		return nil
	}
	if err := os.WriteFile(localPath, resp.Body, 0o644); err != nil {
		log.WithFields(fields).WithField("errmsg", err.Error()).Error("error writing object")
		result.fail(objectURL)
		return nil
	}
	result.saved(localPath, int64(len(resp.Body)))

	if h.Options.Mirror != nil {
		if err := h.Options.Mirror.Upload(ctx, endpoint.Bucket, object.Key, localPath); err != nil {
			log.WithFields(fields).WithField("errmsg", err.Error()).Error("error mirroring object")
		}
	}
	return nil
}

// SafeJoin maps key to a path below root. Leading slashes and ".." segments
// are resolved against root so the result never leaves it.
func SafeJoin(root, key string) (string, error) {
	if strings.ContainsRune(key, 0) {
		return "", ErrUnsafeKey
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if cleaned == "/" {
		return "", ErrUnsafeKey
	}
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}
