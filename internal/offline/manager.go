// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package offline is the offline cache layer between the app and the network.

[Manager] is an [http.RoundTripper]. Every GET it sees is routed to one
handler by URL shape:

  - Card artwork: cache-first with a placeholder fallback, never an error.
  - Dataset JSON: stale-while-revalidate; a background refresh broadcasts a
    DATA_UPDATED notification.
  - Navigations: network-first, falling back to the cached page and then to
    the offline page.
  - Core assets: cache-first, populated on miss.
  - Everything else: stale-while-revalidate without notification.

Entries live in versioned partitions behind [Storage]; freshness is measured
from the time an entry was written, never from upstream caching headers.
*/
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// maxBodyBytes bounds one cached response.
const maxBodyBytes = 16 << 20

// defaultImageTimeout applies when Options.ImageTimeout is zero.
const defaultImageTimeout = 8 * time.Second

// ErrNoCachedCopy means the network failed and nothing was cached for the URL.
var ErrNoCachedCopy = errors.New("offline: no cached copy available")

// FetchError reports a request that could be answered neither by the
// network nor by the cache. It matches [ErrNoCachedCopy] with errors.Is.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("offline: fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrNoCachedCopy, e.Cause}
}

// Notification is broadcast to every open client context.
type Notification struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// TypeDataUpdated announces that a dataset file was refreshed in the background.
const TypeDataUpdated = "DATA_UPDATED"

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Broadcast(notification Notification)
}

// Options configures a [Manager].
type Options struct {
	Storage Storage

	// Network performs real requests. Defaults to http.DefaultTransport.
	Network http.RoundTripper

	// ImageDomain is matched against the host of artwork requests.
	ImageDomain string

	// AppOrigin serves the app shell (core assets, offline page).
	AppOrigin string

	ImageTimeout time.Duration
	Notifier     Notifier
	Logger       *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Manager intercepts requests and answers them from the partitions or the network.
type Manager struct {
	storage      Storage
	network      http.RoundTripper
	imageDomain  string
	appOrigin    string
	imageTimeout time.Duration
	notifier     Notifier
	logger       *slog.Logger
	now          func() time.Time
	tracer       trace.Tracer

	revalidations singleflight.Group
	background    sync.WaitGroup
}

// NewManager creates a [Manager]. Call [Manager.Activate] before serving.
func NewManager(options Options) *Manager {
	manager := &Manager{
		storage:      options.Storage,
		network:      options.Network,
		imageDomain:  strings.ToLower(options.ImageDomain),
		appOrigin:    strings.TrimRight(options.AppOrigin, "/"),
		imageTimeout: options.ImageTimeout,
		notifier:     options.Notifier,
		logger:       options.Logger,
		now:          options.Now,
		tracer:       otel.Tracer("github.com/taibuivan/cardbinder/internal/offline"),
	}

	if manager.network == nil {
		manager.network = http.DefaultTransport
	}
	if manager.imageTimeout <= 0 {
		manager.imageTimeout = defaultImageTimeout
	}
	if manager.logger == nil {
		manager.logger = slog.Default()
	}
	if manager.now == nil {
		manager.now = time.Now
	}
	return manager
}

// # Routing

type route int

const (
	routeImage route = iota
	routeData
	routeNavigation
	routeCoreAsset
	routeDefault
)

func (manager *Manager) classify(request *http.Request) route {
	path := request.URL.Path
	host := strings.ToLower(request.URL.Hostname())

	switch {
	case manager.imageDomain != "" && strings.Contains(host, manager.imageDomain) && strings.Contains(path, "/images/"):
		return routeImage
	case strings.HasSuffix(path, ".json") && strings.Contains(path, "/data/"):
		return routeData
	case isNavigation(request):
		return routeNavigation
	case isCoreAsset(path):
		return routeCoreAsset
	default:
		return routeDefault
	}
}

func isNavigation(request *http.Request) bool {
	if strings.EqualFold(request.Header.Get(constants.HeaderSecFetchMode), "navigate") {
		return true
	}
	return strings.Contains(request.Header.Get("Accept"), "text/html")
}

func isCoreAsset(path string) bool {
	for _, asset := range constants.CoreAssets {
		if asset == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasSuffix(path, asset) {
			return true
		}
	}
	return false
}

// RoundTrip implements [http.RoundTripper]. Only GET requests are intercepted.
func (manager *Manager) RoundTrip(request *http.Request) (*http.Response, error) {
	if request.Method != http.MethodGet {
		return manager.network.RoundTrip(request)
	}

	switch manager.classify(request) {
	case routeImage:
		return manager.handleImage(request), nil
	case routeData:
		return manager.handleData(request)
	case routeNavigation:
		return manager.handleNavigation(request)
	case routeCoreAsset:
		return manager.handleCoreAsset(request)
	default:
		return manager.handleDefault(request)
	}
}

// # Handlers

/*
handleImage serves card artwork.

A fresh entry is returned without touching the network. Otherwise the image
is fetched without credentials, bounded by the image timeout; a 200 is
stored. When that fails the stale entry is used, then the placeholder.
*/
func (manager *Manager) handleImage(request *http.Request) *http.Response {
	url := request.URL.String()
	cached := manager.lookup(request.Context(), ImagePolicy.Name, url)
	if cached != nil && cached.Fresh(manager.now(), ImagePolicy.MaxAge) {
		return cached.Response(request, CacheHit)
	}

	ctx, cancel := context.WithTimeout(request.Context(), manager.imageTimeout)
	defer cancel()

	response, body, err := manager.fetch(ctx, request, "max-stale", true)
	if err == nil && response.StatusCode == http.StatusOK {
		entry := newEntry(url, response, body, manager.now())
		manager.put(request.Context(), ImagePolicy.Name, entry)
		return entry.Response(request, CacheMiss)
	}

	if cached != nil {
		return cached.Response(request, CacheStale)
	}
	return manager.placeholder(request)
}

/*
handleData serves dataset JSON.

A fresh entry is returned at once while a detached refresh runs. A stale or
missing entry blocks on the network; if that fails the stale entry is
returned, and without one the result is a [*FetchError].
*/
func (manager *Manager) handleData(request *http.Request) (*http.Response, error) {
	url := request.URL.String()
	cached := manager.lookup(request.Context(), DataPolicy.Name, url)
	if cached != nil && cached.Fresh(manager.now(), DataPolicy.MaxAge) {
		manager.revalidate(request, DataPolicy.Name, true)
		return cached.Response(request, CacheHit), nil
	}

	response, body, err := manager.fetch(request.Context(), request, "no-cache", true)
	if err == nil && response.StatusCode == http.StatusOK {
		entry := newEntry(url, response, body, manager.now())
		manager.put(request.Context(), DataPolicy.Name, entry)
		return entry.Response(request, CacheMiss), nil
	}

	if cached != nil {
		return cached.Response(request, CacheStale), nil
	}
	if err == nil {
		err = fmt.Errorf("upstream status %d", response.StatusCode)
	}
	return nil, &FetchError{URL: url, Cause: err}
}

// handleNavigation is network-first; the last good page is kept in the app shell.
func (manager *Manager) handleNavigation(request *http.Request) (*http.Response, error) {
	url := request.URL.String()

	response, body, err := manager.fetch(request.Context(), request, "", false)
	if err == nil {
		entry := newEntry(url, response, body, manager.now())
		if response.StatusCode == http.StatusOK {
			manager.put(request.Context(), AppShellPolicy.Name, entry)
		}
		return entry.Response(request, CacheMiss), nil
	}

	if cached := manager.lookup(request.Context(), AppShellPolicy.Name, url); cached != nil {
		return cached.Response(request, CacheStale), nil
	}
	return manager.offlinePage(request), nil
}

// handleCoreAsset is cache-first and fills the app shell on a miss.
func (manager *Manager) handleCoreAsset(request *http.Request) (*http.Response, error) {
	url := request.URL.String()
	if cached := manager.lookup(request.Context(), AppShellPolicy.Name, url); cached != nil {
		return cached.Response(request, CacheHit), nil
	}

	response, body, err := manager.fetch(request.Context(), request, "", false)
	if err != nil {
		switch {
		case strings.HasSuffix(request.URL.Path, constants.PlaceholderPath):
			return manager.placeholder(request), nil
		case strings.HasSuffix(request.URL.Path, constants.OfflinePagePath):
			return manager.offlinePage(request), nil
		}
		return nil, &FetchError{URL: url, Cause: err}
	}

	entry := newEntry(url, response, body, manager.now())
	if response.StatusCode == http.StatusOK {
		manager.put(request.Context(), AppShellPolicy.Name, entry)
	}
	return entry.Response(request, CacheMiss), nil
}

// handleDefault answers from cache when it can and refreshes in the background.
func (manager *Manager) handleDefault(request *http.Request) (*http.Response, error) {
	url := request.URL.String()
	if cached := manager.lookup(request.Context(), AppShellPolicy.Name, url); cached != nil {
		manager.revalidate(request, AppShellPolicy.Name, false)
		return cached.Response(request, CacheHit), nil
	}

	response, body, err := manager.fetch(request.Context(), request, "", false)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}

	entry := newEntry(url, response, body, manager.now())
	if response.StatusCode == http.StatusOK {
		manager.put(request.Context(), AppShellPolicy.Name, entry)
	}
	return entry.Response(request, CacheMiss), nil
}

// # Fallbacks

// placeholder serves the cached placeholder asset, or the built-in one.
func (manager *Manager) placeholder(request *http.Request) *http.Response {
	url := manager.appOrigin + constants.PlaceholderPath
	if cached := manager.lookup(request.Context(), AppShellPolicy.Name, url); cached != nil {
		return cached.Response(request, CachePlaceholder)
	}
	return embeddedEntry(url, "image/png", placeholderPNG).Response(request, CachePlaceholder)
}

// offlinePage serves the cached offline page, or the built-in one.
func (manager *Manager) offlinePage(request *http.Request) *http.Response {
	url := manager.appOrigin + constants.OfflinePagePath
	if cached := manager.lookup(request.Context(), AppShellPolicy.Name, url); cached != nil {
		return cached.Response(request, CachePlaceholder)
	}
	return embeddedEntry(url, "text/html; charset=utf-8", offlinePage).Response(request, CachePlaceholder)
}

// # Network & Storage

/*
fetch performs the upstream request and reads the whole body.

Parameters:
  - ctx: context.Context (bounds the request and the body read)
  - request: *http.Request (the intercepted request, left untouched)
  - directive: string (Cache-Control request directive, "" for none)
  - anonymous: bool (drop Cookie and Authorization)

Returns:
  - *http.Response: The response, body already consumed
  - []byte: The body
  - error: Transport or read failure; non-2xx statuses are not errors
*/
func (manager *Manager) fetch(ctx context.Context, request *http.Request, directive string, anonymous bool) (*http.Response, []byte, error) {
	ctx, span := manager.tracer.Start(ctx, "offline.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(request.Method),
			semconv.URLFull(request.URL.String()),
			attribute.Bool("offline.anonymous", anonymous),
		),
	)
	defer span.End()

	upstream := request.Clone(ctx)
	upstream.RequestURI = ""
	if anonymous {
		upstream.Header.Del("Cookie")
		upstream.Header.Del("Authorization")
	}
	if directive != "" {
		upstream.Header.Set("Cache-Control", directive)
	}

	response, err := manager.network.RoundTrip(upstream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, nil, err
	}
	defer response.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(response.StatusCode))

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return response, body, nil
}

// lookup returns the cached entry or nil. Storage failures count as a miss.
func (manager *Manager) lookup(ctx context.Context, partition, url string) *Entry {
	entry, err := manager.storage.Get(ctx, partition, url)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			manager.logger.WarnContext(ctx, "offline_lookup_failed",
				slog.String("partition", partition),
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
		return nil
	}
	return entry
}

// put stores entry. A failed write is logged; the response is still served.
func (manager *Manager) put(ctx context.Context, partition string, entry *Entry) {
	if err := manager.storage.Put(context.WithoutCancel(ctx), partition, entry); err != nil {
		manager.logger.WarnContext(ctx, "offline_store_failed",
			slog.String("partition", partition),
			slog.String("url", entry.URL),
			slog.Any("error", err),
		)
	}
}

// Wait blocks until every background refresh started so far has finished.
func (manager *Manager) Wait() {
	manager.background.Wait()
}
