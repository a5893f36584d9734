// Package index maintains the conversation list: one entry per identity key,
// ordered by last activity, newest first.
package index

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

type Index struct {
	mu    sync.RWMutex
	byKey map[string]*models.Conversation
	order []string
}

func New() *Index {
	return &Index{byKey: make(map[string]*models.Conversation)}
}

// MergeSnapshot folds a server snapshot and the local cache into the index.
// Keys present in several sources are merged field by field: the higher
// unread count, the more complete display name and the later activity
// (with its preview) win. Keys only present locally are kept untouched.
func (x *Index) MergeSnapshot(server, local []models.Conversation) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, c := range local {
		if c.Key == "" {
			continue
		}
		c.Origin = models.OriginLocal
		x.mergeLocked(c)
	}
	for _, c := range server {
		if c.Key == "" {
			continue
		}
		c.Origin = models.OriginServer
		x.mergeLocked(c)
	}
	x.resort()
}

// ApplyIncoming records an inbound message for key. The preview and
// timestamp move only forward in time; unread grows by one when the
// conversation is in the background.
func (x *Index) ApplyIncoming(key, identity, preview string, ts time.Time, background bool) models.Conversation {
	x.mu.Lock()
	defer x.mu.Unlock()

	c := x.ensureLocked(key, identity, models.OriginServer)
	touch(c, preview, ts)
	if background {
		c.UnreadCount++
	}
	x.resort()
	return *c
}

// ApplyOutgoing records a message sent from this device. created is true
// when the conversation did not exist before.
func (x *Index) ApplyOutgoing(key, identity, preview string, ts time.Time) (models.Conversation, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, existed := x.byKey[key]
	c := x.ensureLocked(key, identity, models.OriginLocal)
	touch(c, preview, ts)
	x.resort()
	return *c, !existed
}

// Ensure returns the conversation for key, creating it with origin when
// missing.
func (x *Index) Ensure(key, identity string, origin models.Origin) (models.Conversation, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, existed := x.byKey[key]
	c := x.ensureLocked(key, identity, origin)
	if !existed {
		x.resort()
	}
	return *c, !existed
}

// ResetUnread zeroes the unread counter and reports whether it was non-zero.
func (x *Index) ResetUnread(key string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.byKey[key]
	if !ok || c.UnreadCount == 0 {
		return false
	}
	c.UnreadCount = 0
	return true
}

// MarkServerKnown flips a local conversation to server origin.
func (x *Index) MarkServerKnown(key string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.byKey[key]
	if !ok || c.Origin == models.OriginServer {
		return false
	}
	c.Origin = models.OriginServer
	return true
}

// UpdatePreview replaces the preview without touching the activity time.
func (x *Index) UpdatePreview(key, preview string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if c, ok := x.byKey[key]; ok {
		c.LastMessagePreview = preview
	}
}

// SetDisplayName keeps the more complete of the current and given names.
func (x *Index) SetDisplayName(key, name string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if c, ok := x.byKey[key]; ok {
		c.DisplayName = betterName(c.DisplayName, name)
	}
}

func (x *Index) Get(key string) (models.Conversation, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.byKey[key]
	if !ok {
		return models.Conversation{}, false
	}
	return *c, true
}

// List returns the conversations ordered by LastActivityAt descending.
func (x *Index) List() []models.Conversation {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]models.Conversation, 0, len(x.order))
	for _, k := range x.order {
		out = append(out, *x.byKey[k])
	}
	return out
}

// Local returns the conversations that exist only on this device.
func (x *Index) Local() []models.Conversation {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []models.Conversation
	for _, k := range x.order {
		if c := x.byKey[k]; c.Origin == models.OriginLocal {
			out = append(out, *c)
		}
	}
	return out
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byKey)
}

func (x *Index) ensureLocked(key, identity string, origin models.Origin) *models.Conversation {
	c, ok := x.byKey[key]
	if !ok {
		c = &models.Conversation{Key: key, Identity: identity, Origin: origin}
		x.byKey[key] = c
		x.order = append(x.order, key)
		return c
	}
	if c.Identity == "" {
		c.Identity = identity
	}
	return c
}

func (x *Index) mergeLocked(in models.Conversation) {
	cur, ok := x.byKey[in.Key]
	if !ok {
		c := in
		if c.UnreadCount < 0 {
			c.UnreadCount = 0
		}
		x.byKey[in.Key] = &c
		x.order = append(x.order, in.Key)
		return
	}

	if in.UnreadCount > cur.UnreadCount {
		cur.UnreadCount = in.UnreadCount
	}
	cur.DisplayName = betterName(cur.DisplayName, in.DisplayName)
	if in.Identity != "" && (cur.Identity == "" || in.Origin == models.OriginServer) {
		cur.Identity = in.Identity
	}
	if in.LastActivityAt.After(cur.LastActivityAt) {
		cur.LastActivityAt = in.LastActivityAt
		if in.LastMessagePreview != "" {
			cur.LastMessagePreview = in.LastMessagePreview
		}
	} else if cur.LastMessagePreview == "" {
		cur.LastMessagePreview = in.LastMessagePreview
	}
	if in.Origin == models.OriginServer {
		cur.Origin = models.OriginServer
	}
}

// resort orders by activity descending, then key ascending for a stable,
// deterministic list.
func (x *Index) resort() {
	sort.SliceStable(x.order, func(i, j int) bool {
		a, b := x.byKey[x.order[i]], x.byKey[x.order[j]]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return a.Key < b.Key
	})
}

func touch(c *models.Conversation, preview string, ts time.Time) {
	if ts.Before(c.LastActivityAt) {
		return
	}
	c.LastActivityAt = ts
	if preview != "" {
		c.LastMessagePreview = preview
	}
}

// betterName picks the more complete display name: non-empty beats empty,
// a name with letters beats a bare number, then the longer one wins.
func betterName(cur, in string) string {
	cur, in = strings.TrimSpace(cur), strings.TrimSpace(in)
	switch {
	case in == "":
		return cur
	case cur == "":
		return in
	}
	cl, il := hasLetter(cur), hasLetter(in)
	if cl != il {
		if il {
			return in
		}
		return cur
	}
	if len([]rune(in)) > len([]rune(cur)) {
		return in
	}
	return cur
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
