// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// installConcurrency bounds parallel downloads of the app shell.
const installConcurrency = 4

/*
Install pre-caches the core assets from the app origin into the app shell.

Failures are logged per asset and never stop the others.

Returns:
  - int: The number of assets stored
*/
func (manager *Manager) Install(ctx context.Context) int {
	var installed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(installConcurrency)

	for _, asset := range constants.CoreAssets {
		url := manager.appOrigin + asset
		group.Go(func() error {
			request, err := http.NewRequestWithContext(groupCtx, http.MethodGet, url, nil)
			if err != nil {
				manager.logger.WarnContext(groupCtx, "offline_install_asset_failed", slog.String("url", url), slog.Any("error", err))
				return nil
			}

			response, body, err := manager.fetch(groupCtx, request, "no-cache", false)
			if err != nil || response.StatusCode != http.StatusOK {
				attrs := []any{slog.String("url", url)}
				if err != nil {
					attrs = append(attrs, slog.Any("error", err))
				} else {
					attrs = append(attrs, slog.Int("status", response.StatusCode))
				}
				manager.logger.WarnContext(groupCtx, "offline_install_asset_failed", attrs...)
				return nil
			}

			manager.put(groupCtx, AppShellPolicy.Name, newEntry(url, response, body, manager.now()))
			installed.Add(1)
			return nil
		})
	}
	_ = group.Wait()

	manager.logger.InfoContext(ctx, "offline_installed",
		slog.Int64("assets", installed.Load()),
		slog.Int("total", len(constants.CoreAssets)),
	)
	return int(installed.Load())
}
