// Package loader fetches and decodes tile descriptions and textures off the render thread.
//
// Requests never block the caller. Workers fetch, validate and decode, then
// queue a Completion which the render thread collects with Drain.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	grouplru "github.com/golang/groupcache/lru"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/store"
	"github.com/rotblauer/skytile/texture"
	"github.com/tidwall/gjson"
)

var (
	ErrInvalidDocument  = errors.New("invalid description document")
	ErrPreviouslyFailed = errors.New("previously failed")
	ErrClosed           = errors.New("loader closed")
)

const completionsBuffer = 1024

type job struct {
	kind  Kind
	token Token
	gen   uint64
	uri   string
}

type Loader struct {
	config  *params.LoaderConfig
	fetcher fetch.Fetcher
	store   *store.Store
	logger  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// queue holds requests no worker has picked up yet.
	// wake has room for one signal.
	queueMu     sync.Mutex
	queue       []job
	wake        chan struct{}
	completions chan Completion
	// inflight counts requests not yet drained.
	inflight atomic.Int64

	docs   *lru.Cache[string, []byte]
	images *ttlcache.Cache[string, *image.RGBA]

	failedMu sync.Mutex
	failed   *grouplru.Cache

	reg          metrics.Registry
	fetched      metrics.Counter
	fetchedBytes metrics.Counter
	docHits      metrics.Counter
	storeHits    metrics.Counter
	imageHits    metrics.Counter
	decoded      metrics.Counter
	failures     metrics.Counter
}

// New starts the worker pool. The store may be nil.
func New(ctx context.Context, config *params.LoaderConfig, fetcher fetch.Fetcher, st *store.Store) (*Loader, error) {
	if config == nil {
		config = params.DefaultLoaderConfig()
	}
	if fetcher == nil {
		return nil, errors.New("nil fetcher")
	}
	docs, err := lru.New[string, []byte](max(config.DescriptionCacheSize, 1))
	if err != nil {
		return nil, err
	}
	images := ttlcache.New[string, *image.RGBA](
		ttlcache.WithTTL[string, *image.RGBA](config.ImageCacheTTL),
		ttlcache.WithCapacity[string, *image.RGBA](max(config.ImageCacheCapacity, 1)),
	)

	ctx, cancel := context.WithCancel(ctx)
	l := &Loader{
		config:      config,
		fetcher:     fetcher,
		store:       st,
		logger:      slog.With("d", "loader"),
		ctx:         ctx,
		cancel:      cancel,
		wake:        make(chan struct{}, 1),
		completions: make(chan Completion, completionsBuffer),
		docs:        docs,
		images:      images,
		failed:      grouplru.New(max(config.FailedCacheSize, 1)),

		reg:          metrics.NewRegistry(),
		fetched:      metrics.NewCounter(),
		fetchedBytes: metrics.NewCounter(),
		docHits:      metrics.NewCounter(),
		storeHits:    metrics.NewCounter(),
		imageHits:    metrics.NewCounter(),
		decoded:      metrics.NewCounter(),
		failures:     metrics.NewCounter(),
	}
	for name, c := range map[string]metrics.Counter{
		"fetch.count":      l.fetched,
		"fetch.bytes":      l.fetchedBytes,
		"description.hits": l.docHits,
		"store.hits":       l.storeHits,
		"image.hits":       l.imageHits,
		"image.decoded":    l.decoded,
		"failure.count":    l.failures,
	} {
		if err := l.reg.Register(name, c); err != nil {
			cancel()
			return nil, err
		}
	}

	go images.Start()

	workers := max(config.Workers, 1)
	l.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go l.work()
	}
	l.logger.Debug("Loader started", "workers", workers, "store", st != nil)
	return l, nil
}

// RequestDescription asks for the description document at uri.
func (l *Loader) RequestDescription(tok Token, uri string) {
	l.enqueue(job{kind: KindDescription, token: tok, uri: uri})
}

// RequestTexture asks for the image at uri. The generation is echoed in the Completion.
func (l *Loader) RequestTexture(tok Token, gen uint64, uri string) {
	l.enqueue(job{kind: KindTexture, token: tok, gen: gen, uri: uri})
}

// Forget clears a remembered failure for uri, allowing it to be fetched again.
func (l *Loader) Forget(uri string) {
	l.failedMu.Lock()
	l.failed.Remove(uri)
	l.failedMu.Unlock()
}

// Drain hands every queued completion to fn without blocking,
// and returns how many were handled. Call it from the render thread.
func (l *Loader) Drain(fn func(Completion)) int {
	n := 0
	for {
		select {
		case c := <-l.completions:
			l.inflight.Add(-1)
			fn(c)
			n++
		default:
			return n
		}
	}
}

// Pending reports the number of completions waiting to be drained.
func (l *Loader) Pending() int {
	return len(l.completions)
}

// InFlight reports the number of requests whose completions have not been drained yet.
func (l *Loader) InFlight() int64 {
	return l.inflight.Load()
}

func (l *Loader) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.wg.Wait()
		l.images.Stop()
		l.logStats()
	})
	return nil
}

func (l *Loader) enqueue(j job) {
	if l.ctx.Err() != nil {
		return
	}
	l.inflight.Add(1)
	l.queueMu.Lock()
	l.queue = append(l.queue, j)
	l.queueMu.Unlock()
	l.signal()
}

func (l *Loader) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued job. If more remain, another worker is woken.
func (l *Loader) next() (job, bool) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if len(l.queue) == 0 {
		return job{}, false
	}
	j := l.queue[0]
	l.queue[0] = job{}
	l.queue = l.queue[1:]
	if len(l.queue) == 0 {
		l.queue = nil
	} else {
		l.signal()
	}
	return j, true
}

// Queued reports the number of requests waiting for a worker.
func (l *Loader) Queued() int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return len(l.queue)
}

func (l *Loader) work() {
	defer l.wg.Done()
	for {
		j, ok := l.next()
		if !ok {
			select {
			case <-l.ctx.Done():
				return
			case <-l.wake:
			}
			continue
		}
		if l.ctx.Err() != nil {
			return
		}
		c := l.handle(j)
		select {
		case l.completions <- c:
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *Loader) handle(j job) Completion {
	c := Completion{Token: j.token, Gen: j.gen, Kind: j.kind, URI: j.uri}
	if err := l.failedBefore(j.uri); err != nil {
		c.Err = err
		return c
	}
	switch j.kind {
	case KindDescription:
		c.Description, c.Err = l.loadDescription(j.uri)
	case KindTexture:
		c.Texture, c.Err = l.loadTexture(j.uri)
	}
	if c.Err != nil && !errors.Is(c.Err, context.Canceled) {
		l.failures.Inc(1)
		l.failedMu.Lock()
		l.failed.Add(j.uri, c.Err)
		l.failedMu.Unlock()
		l.logger.Warn("Load failed", "kind", j.kind, "uri", j.uri, "error", c.Err)
	}
	return c
}

func (l *Loader) failedBefore(uri string) error {
	l.failedMu.Lock()
	defer l.failedMu.Unlock()
	v, ok := l.failed.Get(uri)
	if !ok {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPreviouslyFailed, v)
}

func (l *Loader) fetch(uri string) ([]byte, error) {
	b, err := l.fetcher.Fetch(l.ctx, uri)
	if err != nil {
		return nil, err
	}
	l.fetched.Inc(1)
	l.fetchedBytes.Inc(int64(len(b)))
	return b, nil
}

func (l *Loader) rawDescription(uri string) ([]byte, error) {
	if b, ok := l.docs.Get(uri); ok {
		l.docHits.Inc(1)
		return b, nil
	}
	if l.store != nil {
		b, ok, err := l.store.Get(uri)
		if err != nil {
			l.logger.Warn("Store read failed", "uri", uri, "error", err)
		} else if ok {
			l.storeHits.Inc(1)
			l.docs.Add(uri, b)
			return b, nil
		}
	}
	b, err := l.fetch(uri)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("%w: not json", ErrInvalidDocument)
	}
	l.docs.Add(uri, b)
	if l.store != nil {
		if err := l.store.Put(uri, b); err != nil {
			l.logger.Warn("Store write failed", "uri", uri, "error", err)
		}
	}
	l.logger.Debug("Fetched description", "uri", uri, "size", humanize.Bytes(uint64(len(b))))
	return b, nil
}

func (l *Loader) loadDescription(uri string) (map[string]any, error) {
	b, err := l.rawDescription(uri)
	if err != nil {
		return nil, err
	}
	if !gjson.ParseBytes(b).IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}
	var desc map[string]any
	if err := json.Unmarshal(b, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return desc, nil
}

func (l *Loader) loadTexture(uri string) (*texture.Texture, error) {
	if item := l.images.Get(uri); item != nil {
		l.imageHits.Inc(1)
		return texture.New(uri, item.Value()), nil
	}
	b, err := l.fetch(uri)
	if err != nil {
		return nil, err
	}
	img, err := texture.Decode(b)
	if err != nil {
		return nil, err
	}
	l.decoded.Inc(1)
	tex := texture.New(uri, img)
	l.images.Set(uri, tex.Image(), ttlcache.DefaultTTL)
	l.logger.Debug("Decoded texture", "uri", uri,
		"size", humanize.Bytes(uint64(len(b))), "bounds", img.Bounds().Size())
	return tex, nil
}

// Stats is a point in time copy of the loader counters.
type Stats struct {
	Fetched         int64 `json:"fetched"`
	FetchedBytes    int64 `json:"fetchedBytes"`
	DescriptionHits int64 `json:"descriptionHits"`
	StoreHits       int64 `json:"storeHits"`
	ImageHits       int64 `json:"imageHits"`
	Decoded         int64 `json:"decoded"`
	Failures        int64 `json:"failures"`
	CachedImages    int   `json:"cachedImages"`
	CachedDocuments int   `json:"cachedDocuments"`
	Queued          int   `json:"queued"`
}

func (l *Loader) Stats() Stats {
	return Stats{
		Fetched:         l.fetched.Snapshot().Count(),
		FetchedBytes:    l.fetchedBytes.Snapshot().Count(),
		DescriptionHits: l.docHits.Snapshot().Count(),
		StoreHits:       l.storeHits.Snapshot().Count(),
		ImageHits:       l.imageHits.Snapshot().Count(),
		Decoded:         l.decoded.Snapshot().Count(),
		Failures:        l.failures.Snapshot().Count(),
		CachedImages:    l.images.Len(),
		CachedDocuments: l.docs.Len(),
		Queued:          l.Queued(),
	}
}

func (l *Loader) logStats() {
	s := l.Stats()
	l.logger.Info("Loader stats",
		"fetched", humanize.Comma(s.Fetched),
		"bytes", humanize.Bytes(uint64(s.FetchedBytes)),
		"description.hits", s.DescriptionHits,
		"store.hits", s.StoreHits,
		"image.hits", s.ImageHits,
		"decoded", s.Decoded,
		"failures", s.Failures)
}
