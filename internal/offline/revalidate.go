// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

/*
revalidate refreshes one URL in a detached goroutine.

Nothing waits for it. Concurrent refreshes of the same URL collapse into one.
On a 200 the entry is replaced and, when notify is set, a [TypeDataUpdated]
notification is broadcast. Any failure is dropped with a debug log.
*/
func (manager *Manager) revalidate(request *http.Request, partition string, notify bool) {
	url := request.URL.String()
	detached := request.Clone(context.Background())

	manager.background.Add(1)
	go func() {
		defer manager.background.Done()

		_, _, _ = manager.revalidations.Do(partition+" "+url, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), constants.RevalidateTimeout)
			defer cancel()

			response, body, err := manager.fetch(ctx, detached, "no-cache", true)
			if err != nil {
				manager.logger.Debug("offline_revalidate_failed", slog.String("url", url), slog.Any("error", err))
				return nil, nil
			}
			if response.StatusCode != http.StatusOK {
				manager.logger.Debug("offline_revalidate_rejected", slog.String("url", url), slog.Int("status", response.StatusCode))
				return nil, nil
			}

			manager.put(ctx, partition, newEntry(url, response, body, manager.now()))

			if notify && manager.notifier != nil {
				manager.notifier.Broadcast(Notification{Type: TypeDataUpdated, URL: url})
			}
			return nil, nil
		})
	}()
}
