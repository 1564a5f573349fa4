// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package card

import (
	"strings"
	"sync"
)

// KeySeparator joins the code and image URL of a [Card] key.
// The ASCII unit separator cannot occur in a set code or a URL.
const KeySeparator = "\x1f"

// defaultMemoLimit caps the key memo; a full dataset holds a few thousand prints.
const defaultMemoLimit = 16384

// # Image URL Normalization

/*
ResolveImageURL returns the normalized primary artwork URL of a card.

Rules, in order:
 1. The first new-format reference, truncated right after the first ".png".
    Relative references are joined to assetBase after trimming leading "/".
 2. The first legacy image, verbatim.
 3. "" so the caller can substitute the placeholder asset.
*/
func ResolveImageURL(c Card, assetBase string) string {
	if len(c.ImageLinks) > 0 && c.ImageLinks[0] != "" {
		return normalizeLink(c.ImageLinks[0], assetBase)
	}
	if len(c.LegacyImages) > 0 {
		return c.LegacyImages[0]
	}
	return ""
}

func normalizeLink(ref, assetBase string) string {
	if idx := strings.Index(ref, ".png"); idx >= 0 {
		ref = ref[:idx+len(".png")]
	}

	if isAbsolute(ref) {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}

	base := assetBase
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimLeft(ref, "/")
}

func isAbsolute(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// # Resolver

type memoKey struct {
	code string
	ref  string
}

// Resolver derives image URLs and collection keys for cards.
// Results are memoized per (code, raw reference) in a bounded map.
type Resolver struct {
	assetBase string
	limit     int

	mu   sync.RWMutex
	memo map[memoKey]string
}

// NewResolver creates a [Resolver] that joins relative references to assetBase.
func NewResolver(assetBase string) *Resolver {
	return &Resolver{
		assetBase: assetBase,
		limit:     defaultMemoLimit,
		memo:      make(map[memoKey]string),
	}
}

// AssetBase returns the canonical asset domain prefix.
func (resolver *Resolver) AssetBase() string {
	return resolver.assetBase
}

// ImageURL is [ResolveImageURL] bound to the resolver's asset base.
func (resolver *Resolver) ImageURL(c Card) string {
	return ResolveImageURL(c, resolver.assetBase)
}

// Key returns the collection key of a card: code, separator, image URL.
func (resolver *Resolver) Key(c Card) string {
	mk := memoKey{code: c.Code, ref: c.RawImageRef()}

	resolver.mu.RLock()
	key, ok := resolver.memo[mk]
	resolver.mu.RUnlock()
	if ok {
		return key
	}

	key = c.Code + KeySeparator + resolver.ImageURL(c)

	resolver.mu.Lock()
	if len(resolver.memo) >= resolver.limit {
		// Dropping the whole map is enough; it is rebuilt on the next render pass.
		resolver.memo = make(map[memoKey]string)
	}
	resolver.memo[mk] = key
	resolver.mu.Unlock()

	return key
}

// Invalidate clears the key memo. Called on every dataset reload.
func (resolver *Resolver) Invalidate() {
	resolver.mu.Lock()
	resolver.memo = make(map[memoKey]string)
	resolver.mu.Unlock()
}

// SplitKey returns the code part of a key. Legacy keys are a bare code.
func SplitKey(key string) (code, imageURL string, ok bool) {
	code, imageURL, ok = strings.Cut(key, KeySeparator)
	return code, imageURL, ok
}
