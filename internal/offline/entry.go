// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// Cache states reported in the X-Offline-Cache response header.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheStale       = "stale"
	CachePlaceholder = "placeholder"
	CacheBypass      = "bypass"
)

// Entry is one cached response.
//
// StoredAt is stamped when the entry is written and is the only input to
// freshness; upstream caching headers are ignored.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time

	// Seq orders entries by insertion. Storage assigns it on every Put.
	Seq int64
}

// Age returns how long ago the entry was written.
func (entry *Entry) Age(now time.Time) time.Duration {
	return now.Sub(entry.StoredAt)
}

// Fresh reports whether the entry is younger than maxAge. Zero maxAge never expires.
func (entry *Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	return maxAge <= 0 || entry.Age(now) < maxAge
}

// Response materializes the entry as an HTTP response to request.
func (entry *Entry) Response(request *http.Request, state string) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(constants.HeaderOfflineCache, state)
	header.Set(constants.HeaderOfflineStamped, entry.StoredAt.UTC().Format(http.TimeFormat))
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))

	return &http.Response{
		Status:        strconv.Itoa(entry.Status) + " " + http.StatusText(entry.Status),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       request,
	}
}

// hopHeaders are not meaningful once a response is stored.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Transfer-Encoding", "Set-Cookie", "Content-Length",
	"Date", "Age", constants.HeaderOfflineCache, constants.HeaderOfflineStamped,
}

// newEntry builds an entry from a fully read upstream response.
func newEntry(url string, response *http.Response, body []byte, now time.Time) *Entry {
	header := response.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	for _, name := range hopHeaders {
		header.Del(name)
	}

	return &Entry{
		URL:      url,
		Status:   response.StatusCode,
		Header:   header,
		Body:     body,
		StoredAt: now.UTC(),
	}
}

// EntryMeta is the bookkeeping view of an entry used by maintenance.
type EntryMeta struct {
	URL      string
	StoredAt time.Time
	Seq      int64
}
