package normalize

import (
	"encoding/json"
	"math"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// str returns the first non-empty string value among keys.
func str(rec models.Record, keys ...string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func boolean(rec models.Record, keys ...string) bool {
	for _, k := range keys {
		switch t := rec[k].(type) {
		case bool:
			if t {
				return true
			}
		case string:
			if b, err := strconv.ParseBool(t); err == nil && b {
				return true
			}
		}
	}
	return false
}

func integer(rec models.Record, keys ...string) int {
	for _, k := range keys {
		switch t := rec[k].(type) {
		case float64:
			return int(t)
		case int:
			return t
		case int64:
			return int(t)
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return int(n)
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
		}
	}
	return 0
}

// timestamp returns the first parseable time among keys.
func timestamp(rec models.Record, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if ts, ok := parseTime(rec[k]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f)
		}
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return fromEpoch(f)
		}
	}
	return time.Time{}, false
}

// fromEpoch accepts unix seconds or milliseconds.
func fromEpoch(f float64) (time.Time, bool) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// media extracts the first attachment url and its kind.
func media(rec models.Record) (string, models.MediaKind) {
	url := str(rec, "mediaUrl", "media_url", "MediaUrl0")
	ctype := str(rec, "mediaType", "mediaContentType", "MediaContentType0", "contentType")

	if url == "" {
		switch t := rec["media"].(type) {
		case string:
			url = strings.TrimSpace(t)
		case []any:
			for _, item := range t {
				switch it := item.(type) {
				case string:
					url = strings.TrimSpace(it)
				case map[string]any:
					url = str(it, "url", "uri", "mediaUrl")
					if ctype == "" {
						ctype = str(it, "contentType", "content_type", "type")
					}
				}
				if url != "" {
					break
				}
			}
		}
	}
	if url == "" {
		return "", models.MediaNone
	}
	if ctype == "" {
		ctype = mime.TypeByExtension(path.Ext(strings.SplitN(url, "?", 2)[0]))
	}
	return url, mediaKind(ctype)
}

func mediaKind(ctype string) models.MediaKind {
	ctype = strings.ToLower(ctype)
	switch {
	case strings.HasPrefix(ctype, "image"):
		return models.MediaImage
	case strings.HasPrefix(ctype, "video"):
		return models.MediaVideo
	case strings.HasPrefix(ctype, "audio"):
		return models.MediaAudio
	default:
		return models.MediaDocument
	}
}

// String returns the first non-empty value among keys, numbers formatted.
func String(rec models.Record, keys ...string) string { return str(rec, keys...) }

// Bool reports whether any of keys holds true (or a string parsing as true).
func Bool(rec models.Record, keys ...string) bool { return boolean(rec, keys...) }

// Time returns the first parseable timestamp among keys.
func Time(rec models.Record, keys ...string) (time.Time, bool) { return timestamp(rec, keys...) }
