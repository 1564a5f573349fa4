// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/cardbinder/internal/platform/apperr"
	"github.com/taibuivan/cardbinder/internal/platform/respond"
)

// forwardedHeaders are copied from the browser request to the upstream one.
var forwardedHeaders = []string{
	"Accept", "Accept-Language", "Cookie", "Authorization", "Sec-Fetch-Mode", "Sec-Fetch-Dest", "User-Agent",
}

// Upstreams maps local path prefixes to origins.
type Upstreams struct {
	// App serves every path not matched below.
	App string

	// Data serves /data/*.
	Data string

	// Assets serves /images/* (card artwork).
	Assets string
}

// Proxy exposes the [Manager] to the browser: the app's requests arrive here
// under local paths and are answered through the cache.
type Proxy struct {
	transport     http.RoundTripper
	dataTransport http.RoundTripper
	upstreams     Upstreams
	logger        *slog.Logger
}

// NewProxy creates a [Proxy]. dataTransport serves /data/* when the dataset
// lives outside the network (file:// origins); nil means transport.
func NewProxy(transport, dataTransport http.RoundTripper, upstreams Upstreams, logger *slog.Logger) *Proxy {
	if dataTransport == nil {
		dataTransport = transport
	}
	return &Proxy{
		transport:     transport,
		dataTransport: dataTransport,
		upstreams: Upstreams{
			App:    strings.TrimRight(upstreams.App, "/"),
			Data:   strings.TrimRight(upstreams.Data, "/"),
			Assets: strings.TrimRight(upstreams.Assets, "/"),
		},
		logger: logger,
	}
}

// Target returns the upstream URL and transport for a local request path.
func (proxy *Proxy) Target(request *http.Request) (string, http.RoundTripper) {
	path := request.URL.EscapedPath()
	if request.URL.RawQuery != "" {
		path += "?" + request.URL.RawQuery
	}

	switch {
	case strings.HasPrefix(request.URL.Path, "/data/"):
		return proxy.upstreams.Data + path, proxy.dataTransport
	case strings.HasPrefix(request.URL.Path, "/images/"):
		return proxy.upstreams.Assets + path, proxy.transport
	default:
		return proxy.upstreams.App + path, proxy.transport
	}
}

func (proxy *Proxy) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	target, transport := proxy.Target(request)

	outbound, err := http.NewRequestWithContext(request.Context(), request.Method, target, request.Body)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("invalid upstream path").WithCause(err))
		return
	}
	for _, name := range forwardedHeaders {
		if value := request.Header.Get(name); value != "" {
			outbound.Header.Set(name, value)
		}
	}

	response, err := transport.RoundTrip(outbound)
	if err != nil {
		// Both a cache miss without network and a plain transport failure end here.
		respond.Error(writer, request, apperr.UpstreamUnavailable(err))
		return
	}
	defer response.Body.Close()

	for name, values := range response.Header {
		for _, value := range values {
			writer.Header().Add(name, value)
		}
	}
	writer.WriteHeader(response.StatusCode)

	if request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(writer, response.Body); err != nil {
		proxy.logger.DebugContext(request.Context(), "proxy_copy_aborted", slog.String("target", target), slog.Any("error", err))
	}
}
