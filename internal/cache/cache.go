// Package cache is the content-addressed store that sits in front of every
// generation call. Entries expire lazily on read; backends may also purge.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindTasks    Kind = "tasks"
	KindLesson   Kind = "lesson"
)

var Kinds = []Kind{KindAnalysis, KindTasks, KindLesson}

// Store is safe for concurrent use. Get reports found=false for missing or
// expired entries and removes the expired ones; a successful Get counts a hit.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Purger is implemented by stores that can reclaim expired rows eagerly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Entry is the persisted row.
type Entry struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	HitCount  int       `gorm:"not null"`
}

func (Entry) TableName() string {
	return "cache_entries"
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Key derives the cache key for an operation on a topic within a course.
// It depends only on the normalized inputs, so it is stable across restarts.
func Key(kind Kind, topic, courseName string) string {
	sum := sha256.Sum256([]byte(utils.NormalizeText(topic) + "\x00" + utils.NormalizeText(courseName)))
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}

// KindOf returns the operation kind encoded in a key.
func KindOf(key string) Kind {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return Kind(key[:i])
	}
	return ""
}

// Keys returns one key per kind for a topic and course.
func Keys(topic, courseName string) []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, Key(k, topic, courseName))
	}
	return out
}

// GetJSON reads and decodes an entry. Undecodable values are treated as a miss.
func GetJSON(ctx context.Context, s Store, key string, dst any) bool {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func PutJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, raw, ttl)
}

// TTLs holds the per-kind time-to-live.
type TTLs struct {
	Analysis time.Duration
	Tasks    time.Duration
	Lesson   time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Analysis: 24 * time.Hour,
		Tasks:    7 * 24 * time.Hour,
		Lesson:   7 * 24 * time.Hour,
	}
}

func (t TTLs) For(kind Kind) time.Duration {
	switch kind {
	case KindAnalysis:
		return t.Analysis
	case KindTasks:
		return t.Tasks
	default:
		return t.Lesson
	}
}

// LookupHook observes every Get.
type LookupHook func(kind Kind, hit bool)

type observed struct {
	Store
	hook LookupHook
}

// Observe wraps s so that every Get is reported to hook.
func Observe(s Store, hook LookupHook) Store {
	if hook == nil {
		return s
	}
	return &observed{Store: s, hook: hook}
}

func (o *observed) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := o.Store.Get(ctx, key)
	o.hook(KindOf(key), ok)
	return v, ok
}

// PurgeExpired forwards to the wrapped store when it supports purging.
func (o *observed) PurgeExpired(ctx context.Context) (int64, error) {
	if p, ok := o.Store.(Purger); ok {
		return p.PurgeExpired(ctx)
	}
	return 0, nil
}
