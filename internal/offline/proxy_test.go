// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/offline"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

func newProxy(f *fixture) *offline.Proxy {
	return offline.NewProxy(f.manager, nil, offline.Upstreams{
		App:    appURL + "/",
		Data:   "http://dataset.local",
		Assets: "https://en.onepiece-cardgame.com",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestProxy_Target(t *testing.T) {
	proxy := newProxy(newFixture(t))

	tests := []struct {
		path string
		want string
	}{
		{"/data/OP01.json", "http://dataset.local/data/OP01.json"},
		{"/images/cardlist/card/OP01-001.png?260101", "https://en.onepiece-cardgame.com/images/cardlist/card/OP01-001.png?260101"},
		{"/app.js", "http://app.local/app.js"},
		{"/", "http://app.local/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			target, _ := proxy.Target(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, target)
		})
	}
}

func TestProxy_ServesThroughCache(t *testing.T) {
	f := newFixture(t)
	f.network.set(dataURL, `[{"code":"OP01-001"}]`)
	proxy := newProxy(f)

	recorder := httptest.NewRecorder()
	proxy.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/data/OP01.json", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `[{"code":"OP01-001"}]`, recorder.Body.String())
	assert.Equal(t, offline.CacheMiss, recorder.Header().Get(constants.HeaderOfflineCache))

	f.network.setDown(true)
	recorder = httptest.NewRecorder()
	proxy.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/data/OP01.json", nil))
	assert.Equal(t, offline.CacheHit, recorder.Header().Get(constants.HeaderOfflineCache))
	f.manager.Wait()
}

func TestProxy_NoCachedCopy(t *testing.T) {
	f := newFixture(t)
	f.network.setDown(true)

	recorder := httptest.NewRecorder()
	newProxy(f).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/data/OP09.json", nil))
	require.Equal(t, http.StatusBadGateway, recorder.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", envelope["code"])
}
