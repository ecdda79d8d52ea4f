package service

import (
	"context"
	"log"

	"github.com/shinyyama/agri-marketplace/internal/reqctx"
)

type UserSummary struct {
	UID         string
	DisplayName string
	PhotoURL    *string
}

// UserDirectory resolves public profile data for a uid.
type UserDirectory interface {
	Lookup(ctx context.Context, uid string) (*UserSummary, error)
}

// summaryCache memoizes lookups for the duration of one call. Lookup
// failures degrade to a uid-only summary.
type summaryCache struct {
	dir   UserDirectory
	cache map[string]*UserSummary
}

func newSummaryCache(dir UserDirectory) *summaryCache {
	return &summaryCache{dir: dir, cache: map[string]*UserSummary{}}
}

func (c *summaryCache) get(ctx context.Context, uid string) *UserSummary {
	if uid == "" {
		return nil
	}
	if s, ok := c.cache[uid]; ok {
		return s
	}
	s := &UserSummary{UID: uid}
	if c.dir != nil {
		found, err := c.dir.Lookup(ctx, uid)
		if err != nil {
			log.Printf("[directory] rid=%s stage=lookup_fail uid=%s err=%v", reqctx.RID(ctx), uid, err)
		} else if found != nil {
			s = found
		}
	}
	c.cache[uid] = s
	return s
}
