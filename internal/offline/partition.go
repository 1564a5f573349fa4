// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package offline

import (
	"slices"
	"time"

	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// Policy bounds one partition. Zero values mean unbounded.
type Policy struct {
	Name       string
	MaxAge     time.Duration
	MaxEntries int
}

// Bounded reports whether the sweep has anything to enforce.
func (policy Policy) Bounded() bool {
	return policy.MaxAge > 0 || policy.MaxEntries > 0
}

// AppShellPolicy holds core assets and the last navigated page.
var AppShellPolicy = Policy{Name: constants.PartitionAppShell}

// ImagePolicy holds card artwork.
var ImagePolicy = Policy{
	Name:       constants.PartitionImages,
	MaxAge:     constants.ImageMaxAge,
	MaxEntries: constants.ImageMaxEntries,
}

// DataPolicy holds per-set dataset JSON.
var DataPolicy = Policy{
	Name:       constants.PartitionData,
	MaxAge:     constants.DataMaxAge,
	MaxEntries: constants.DataMaxEntries,
}

// Policies returns every recognized partition.
func Policies() []Policy {
	return []Policy{AppShellPolicy, ImagePolicy, DataPolicy}
}

// Recognized reports whether name belongs to the current partition set.
func Recognized(name string) bool {
	return slices.ContainsFunc(Policies(), func(policy Policy) bool { return policy.Name == name })
}
