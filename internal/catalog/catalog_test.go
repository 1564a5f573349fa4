// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/catalog"
	"github.com/taibuivan/cardbinder/internal/collection"
	"github.com/taibuivan/cardbinder/internal/dataset"
	"github.com/taibuivan/cardbinder/internal/filter"
	"github.com/taibuivan/cardbinder/internal/offline"
	"github.com/taibuivan/cardbinder/internal/platform/slot"
)

const assetBase = "https://en.onepiece-cardgame.com/"

var setFiles = map[string]string{
	"OP01": `[
		{"code":"OP01-001","name":"Roronoa Zoro","class":"LEADER","color":"Red","card_image_link":["images/cardlist/card/OP01-001.png?240101"]},
		{"code":"OP01-024","name":"Monkey.D.Luffy","class":"CHARACTER","color":"Green","counter":"2000"}
	]`,
	"ST01": `[
		{"code":"ST01-001","name":"Monkey.D.Luffy","Class":"Leader","color":"Red","images":["https://cdn.example.com/ST01-001.png"]}
	]`,
}

type fixture struct {
	service    *catalog.Service
	router     chi.Router
	holder     *dataset.Holder
	collection *collection.Store
	slot       *slot.Memory
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		set := strings.TrimSuffix(strings.TrimPrefix(request.URL.Path, "/data/"), ".json")
		body, ok := files[set]
		if !ok {
			http.NotFound(writer, request)
			return
		}
		_, _ = io.WriteString(writer, body)
	}))
	t.Cleanup(upstream.Close)

	holder := dataset.NewHolder()
	fetcher := dataset.NewFetcher(upstream.Client(), upstream.URL, 6, nil, logger)
	loader := dataset.NewLoader(fetcher, holder, []string{"OP01", "ST01"}, logger)

	memory := slot.NewMemory()
	store := collection.NewStore(memory, 10*time.Millisecond, logger)
	store.Load(context.Background())

	service := catalog.NewService(catalog.Deps{
		Holder:     holder,
		Loader:     loader,
		Resolver:   card.NewResolver(assetBase),
		Index:      card.NewIndex(nil),
		Collection: store,
		Filters:    filter.NewStore(slot.NewMemory(), logger),
		Manager:    offline.NewManager(offline.Options{Storage: offline.NewMemoryStorage(), Logger: logger}),
		Logger:     logger,
	})

	router := chi.NewRouter()
	catalog.NewHandler(service).RegisterRoutes(router)

	return &fixture{service: service, router: router, holder: holder, collection: store, slot: memory}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)

	var decoded map[string]any
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder, decoded
}

func TestService_Contract(t *testing.T) {
	f := newFixture(t, setFiles)
	ctx := context.Background()

	_, err := f.service.Visible("")
	require.Error(t, err)

	require.NoError(t, f.service.LoadAll(ctx, nil))

	visible, err := f.service.Visible("")
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, "OP01-001", visible[0].Code)

	zoro := visible[0]
	assert.True(t, f.service.IsLeader("OP01-001"))
	assert.True(t, f.service.IsLeader("ST01-001"))
	assert.False(t, f.service.IsLeader("OP01-024"))
	assert.Equal(t, "OP01-001\x1f"+assetBase+"images/cardlist/card/OP01-001.png", f.service.ResolveKey(zoro))

	assert.Equal(t, 0, f.service.Quantity(zoro))
	assert.Equal(t, 2, f.service.SetQuantity(zoro, 2))
	assert.Equal(t, 2, f.service.Quantity(zoro))

	view := f.service.View(zoro)
	assert.Equal(t, "/images/cardlist/card/OP01-001.png", view.Image)
	assert.Equal(t, []card.Pip{card.PipSpecial}, view.Indicator)

	luffy, err := f.service.Lookup("OP01-024")
	require.NoError(t, err)
	assert.Equal(t, "/assets/card/bg-caracter.png", f.service.View(luffy).Image)

	st01, err := f.service.Lookup("ST01-001")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ST01-001.png", f.service.View(st01).Image)
}

func TestService_MigratesLegacyKeysOnLoad(t *testing.T) {
	f := newFixture(t, setFiles)
	f.collection.SetQuantity("OP01-024", 3)

	require.NoError(t, f.service.LoadAll(context.Background(), nil))

	luffy, err := f.service.Lookup("OP01-024")
	require.NoError(t, err)
	assert.Equal(t, 3, f.service.Quantity(luffy))
	assert.NotContains(t, f.service.Collection(), "OP01-024")
}

func TestHandler_ListCards(t *testing.T) {
	f := newFixture(t, setFiles)

	recorder, body := f.do(t, http.MethodGet, "/cards", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "NOT_LOADED", body["code"])

	require.NoError(t, f.service.LoadAll(context.Background(), nil))

	recorder, body = f.do(t, http.MethodGet, "/cards?q=luf&limit=1", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	data := body["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "OP01-024", first["code"])
	assert.Equal(t, false, first["leader"])
	assert.Len(t, first["indicator"], 4)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])

	recorder, body = f.do(t, http.MethodGet, "/cards?q=lu", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, body["data"], 3)
}

func TestHandler_EmptyLoad(t *testing.T) {
	f := newFixture(t, map[string]string{})

	recorder, body := f.do(t, http.MethodPost, "/cards/reload", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "NO_CARDS", body["code"])

	recorder, body = f.do(t, http.MethodGet, "/cards", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "NO_CARDS", body["code"])

	recorder, body = f.do(t, http.MethodGet, "/cards/status", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "empty", body["data"].(map[string]any)["state"])
}

func TestHandler_Reload(t *testing.T) {
	f := newFixture(t, setFiles)

	recorder, body := f.do(t, http.MethodPost, "/cards/reload", `{"sets":["OP01"]}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	status := body["data"].(map[string]any)
	assert.Equal(t, "loaded", status["state"])
	assert.Equal(t, float64(2), status["count"])

	recorder, body = f.do(t, http.MethodPost, "/cards/reload", `{"sets":["../etc"]}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestHandler_Leader(t *testing.T) {
	f := newFixture(t, setFiles)
	require.NoError(t, f.service.LoadAll(context.Background(), nil))

	recorder, body := f.do(t, http.MethodGet, "/cards/OP01-001/leader", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["data"].(map[string]any)["leader"])

	recorder, _ = f.do(t, http.MethodGet, "/cards/OP99-999/leader", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandler_Collection(t *testing.T) {
	f := newFixture(t, setFiles)
	key := "OP01-024\x1f"

	recorder, body := f.do(t, http.MethodPut, "/collection", `{"key":"OP01-024\u001f","quantity":"3"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["quantity"])
	assert.Equal(t, 3, f.collection.Quantity(key))

	recorder, _ = f.do(t, http.MethodPut, "/collection", `{"key":"OP01-024\u001f","quantity":-1}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 0, f.collection.Quantity(key))

	recorder, body = f.do(t, http.MethodPut, "/collection", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	recorder, _ = f.do(t, http.MethodPut, "/collection", `{`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	f.collection.SetQuantity("ST01-001", 1)
	recorder, body = f.do(t, http.MethodGet, "/collection", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	require.Eventually(t, func() bool { return f.slot.Writes() > 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_Filters(t *testing.T) {
	f := newFixture(t, setFiles)
	require.NoError(t, f.service.LoadAll(context.Background(), nil))

	recorder, body := f.do(t, http.MethodGet, "/filters", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["data"].(map[string]any)["color"].(map[string]any)["all"])

	recorder, _ = f.do(t, http.MethodPut, "/filters", `{"color":{"all":false,"values":["green"]}}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, body = f.do(t, http.MethodGet, "/cards", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "OP01-024", data[0].(map[string]any)["code"])

	recorder, body = f.do(t, http.MethodPut, "/filters", `{"shape":{"all":true}}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestHandler_Offline(t *testing.T) {
	f := newFixture(t, setFiles)

	recorder, body := f.do(t, http.MethodGet, "/offline", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, body["data"], len(offline.Policies()))

	recorder, body = f.do(t, http.MethodPost, "/offline/sweep", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotNil(t, body["data"])
}
