// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	_ "embed"
	"net/http"
	"time"
)

// Served when neither the network nor any partition can answer.
var (
	//go:embed assets/placeholder.png
	placeholderPNG []byte

	//go:embed assets/offline.html
	offlinePage []byte
)

// embeddedEntry wraps a built-in asset as an entry stamped now.
func embeddedEntry(url, contentType string, body []byte) *Entry {
	return &Entry{
		URL:      url,
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{contentType}, "Cache-Control": []string{"no-store"}},
		Body:     body,
		StoredAt: time.Now().UTC(),
	}
}
