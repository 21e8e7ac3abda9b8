package ranges

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web"
)

const DefaultMaxAge = 24 * time.Hour

// Manager hands out range lists, fetching a provider's document again only
// once the cached copy is older than MaxAge.
type Manager struct {
	Cache   *Cache
	Client  web.Client
	MaxAge  time.Duration
	Timeout time.Duration
}

func NewManager(cache *Cache, client web.Client) *Manager {
	return &Manager{Cache: cache, Client: client, MaxAge: DefaultMaxAge, Timeout: 30 * time.Second}
}

func (m *Manager) Fetch(ctx context.Context, source Source) ([]byte, error) {
	log.WithFields(log.Fields{"state": source.Name(), "action": "get-cidr-range"}).Infof("fetching IP ranges from %s", source.URL())
	resp, err := web.Get(ctx, m.Client, source.URL(), m.Timeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, source.URL())
	}
	return resp.Body, nil
}

// Update downloads the document and replaces the cached copy once it parses.
func (m *Manager) Update(ctx context.Context, source Source) ([]byte, error) {
	body, err := m.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	if _, err := source.Parse(body, Filter{}); err != nil {
		return nil, err
	}
	if err := m.Cache.Store(source.Name(), body); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"state": source.Name(), "action": "update-cidr-range"}).Info("ranges updated successfully")
	return body, nil
}

// Document returns the provider document from cache when fresh. A failed
// update falls back to a stale copy when there is one.
func (m *Manager) Document(ctx context.Context, source Source, forceUpdate bool) ([]byte, error) {
	fields := log.Fields{"state": source.Name(), "action": "load-cidr-range"}
	var stale []byte
	if !forceUpdate {
		body, err := m.Cache.Load(source.Name(), m.MaxAge)
		switch {
		case err == nil:
			log.WithFields(fields).Debug("ranges up to date. skipping update")
			return body, nil
		case errors.Is(err, ErrStale):
			log.WithFields(fields).Info("cached ranges are stale. updating")
			stale = body
		case errors.Is(err, ErrNotCached):
			log.WithFields(fields).Info("no cached ranges. updating")
		default:
			log.WithFields(fields).WithField("errmsg", err.Error()).Warn("error reading cached ranges")
		}
	}
	body, err := m.Update(ctx, source)
	if err != nil {
		if stale != nil {
			log.WithFields(fields).WithField("errmsg", err.Error()).Warn("error updating ranges. using stale copy")
			return stale, nil
		}
		return nil, err
	}
	return body, nil
}

func (m *Manager) Ranges(ctx context.Context, source Source, filter Filter, forceUpdate bool) ([]Prefix, error) {
	body, err := m.Document(ctx, source, forceUpdate)
	if err != nil {
		return nil, err
	}
	return source.Parse(body, filter)
}

// IndexAll builds one index over every given source. Sources that cannot be
// loaded are logged and left out.
func (m *Manager) IndexAll(ctx context.Context, sources []Source, filter Filter, forceUpdate bool) (*Index, error) {
	var all []Prefix
	for _, source := range sources {
		prefixes, err := m.Ranges(ctx, source, filter, forceUpdate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithFields(log.Fields{"state": source.Name(), "action": "load-cidr-range", "errmsg": err.Error()}).Error("error loading ranges")
			continue
		}
		all = append(all, prefixes...)
	}
	return NewIndex(all)
}

// Watch loads every source once, using the cache when it is fresh, and then
// downloads all of them again on each tick of interval until ctx is done. A
// failed download leaves the cached copy in place.
func (m *Manager) Watch(ctx context.Context, sources []Source, interval time.Duration) error {
	refresh := func(forceUpdate bool) {
		for _, source := range sources {
			if _, err := m.Document(ctx, source, forceUpdate); err != nil {
				log.WithFields(log.Fields{"state": source.Name(), "action": "watch-cidr-range", "errmsg": err.Error()}).Error("error refreshing ranges")
			}
		}
	}
	refresh(false)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{"state": "ranges", "action": "watch-cidr-range"}).Info("recieved context cancellation")
			return ctx.Err()
		case <-ticker.C:
			refresh(true)
		}
	}
}
