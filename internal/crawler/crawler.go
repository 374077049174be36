package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/littlebom/anlp-gmap-sub001/internal/clients/esco"
	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
	"github.com/littlebom/anlp-gmap-sub001/internal/utils"
)

const skillIDKeyPrefix = "taxonomy:skill:"

// Crawler walks the occupation taxonomy level by level: groups of groups down
// to leaf groups, then the occupations under each group, then the skills
// attached to each occupation. Every write is an upsert keyed by uri, so
// re-running a crawl converges on the same rows instead of duplicating them.
type Crawler struct {
	client      esco.Client
	store       repos.TaxonomyRepo
	redis       *redis.Client
	log         *logger.Logger
	concurrency int
	cacheTTL    time.Duration
}

func NewCrawler(client esco.Client, store repos.TaxonomyRepo, redisClient *redis.Client, baseLog *logger.Logger) *Crawler {
	log := baseLog.With("component", "TaxonomyCrawler")
	return &Crawler{
		client:      client,
		store:       store,
		redis:       redisClient,
		log:         log,
		concurrency: utils.GetEnvAsInt("CRAWL_CONCURRENCY", 4, log),
		cacheTTL:    time.Duration(utils.GetEnvAsInt("CRAWL_CACHE_TTL_HOURS", 24, log)) * time.Hour,
	}
}

// GroupRef addresses one group to crawl beneath an already-stored parent.
type GroupRef struct {
	URI      string
	ParentID *uuid.UUID
}

// CrawlAll ingests everything reachable from the given root group URIs,
// descending one hierarchy level at a time until no child groups remain.
func (c *Crawler) CrawlAll(ctx context.Context, rootURIs []string) error {
	start := time.Now()
	level := make([]GroupRef, 0, len(rootURIs))
	for _, uri := range rootURIs {
		level = append(level, GroupRef{URI: uri})
	}
	depth := 0
	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := c.CrawlLevel(ctx, level)
		c.log.Info("Crawled level", "depth", depth, "groups", len(level), "child_groups", len(next))
		level = next
		depth++
	}
	c.log.Info("Crawl finished", "roots", len(rootURIs), "levels", depth, "duration", time.Since(start).String())
	return nil
}

// CrawlLevel processes one hierarchy level of groups with bounded concurrency
// and returns the references for the next level. A failing group is logged
// and skipped; its siblings still run and its branch simply keeps whatever
// state an earlier crawl left behind.
func (c *Crawler) CrawlLevel(ctx context.Context, parents []GroupRef) []GroupRef {
	var mu sync.Mutex
	var next []GroupRef

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, ref := range parents {
		ref := ref
		g.Go(func() error {
			children, err := c.crawlGroup(gctx, ref)
			if err != nil {
				c.log.Warn("Skipping group", "uri", ref.URI, "error", err)
				return nil
			}
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return next
}

// crawlGroup upserts one group and all occupations directly under it, and
// returns references to its child groups. Occupation failures are isolated
// the same way group failures are.
func (c *Crawler) crawlGroup(ctx context.Context, ref GroupRef) ([]GroupRef, error) {
	group, err := c.client.FetchGroup(ctx, ref.URI)
	if err != nil {
		return nil, fmt.Errorf("fetch group %s: %w", ref.URI, err)
	}
	stored, err := c.store.UpsertGroup(ctx, nil, &types.IscoGroup{
		URI:         group.URI,
		Code:        group.Code,
		PrefLabel:   group.Label,
		Description: group.Description,
		ParentID:    ref.ParentID,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert group %s: %w", ref.URI, err)
	}
	c.log.Info("Crawled group", "uri", ref.URI, "code", stored.Code,
		"child_groups", len(group.ChildGroupURIs), "occupations", len(group.OccupationURIs))

	for _, occURI := range group.OccupationURIs {
		if err := c.ProcessOccupation(ctx, occURI, stored.ID); err != nil {
			c.log.Warn("Skipping occupation", "uri", occURI, "error", err)
		}
	}

	children := make([]GroupRef, 0, len(group.ChildGroupURIs))
	for _, childURI := range group.ChildGroupURIs {
		children = append(children, GroupRef{URI: childURI, ParentID: &stored.ID})
	}
	return children, nil
}

// ProcessOccupation upserts one occupation and every skill relation it
// carries. Essential relations win over optional when the same skill appears
// in both buckets.
func (c *Crawler) ProcessOccupation(ctx context.Context, uri string, groupID uuid.UUID) error {
	occ, err := c.client.FetchOccupation(ctx, uri)
	if err != nil {
		return fmt.Errorf("fetch occupation %s: %w", uri, err)
	}
	stored, err := c.store.UpsertOccupation(ctx, nil, &types.Occupation{
		URI:         occ.URI,
		PrefLabel:   occ.Label,
		Description: occ.Description,
		GroupID:     groupID,
	})
	if err != nil {
		return fmt.Errorf("upsert occupation %s: %w", uri, err)
	}

	relations := make(map[string]string, len(occ.EssentialSkillURIs)+len(occ.OptionalSkillURIs))
	order := make([]string, 0, len(occ.EssentialSkillURIs)+len(occ.OptionalSkillURIs))
	for _, skillURI := range occ.OptionalSkillURIs {
		if _, seen := relations[skillURI]; !seen {
			order = append(order, skillURI)
		}
		relations[skillURI] = types.RelationOptional
	}
	for _, skillURI := range occ.EssentialSkillURIs {
		if _, seen := relations[skillURI]; !seen {
			order = append(order, skillURI)
		}
		relations[skillURI] = types.RelationEssential
	}

	for _, skillURI := range order {
		skill, err := c.resolveSkill(ctx, skillURI)
		if err != nil {
			c.log.Warn("Skipping skill", "uri", skillURI, "occupation", uri, "error", err)
			continue
		}
		err = c.store.UpsertRelation(ctx, nil, &types.OccupationSkillRelation{
			OccupationID: stored.ID,
			SkillID:      skill.ID,
			RelationType: relations[skillURI],
		})
		if err != nil {
			c.log.Warn("Failed to upsert relation", "occupation", uri, "skill", skillURI, "error", err)
		}
	}
	c.log.Debug("Processed occupation", "uri", uri, "skills", len(order))
	return nil
}

// resolveSkill returns the stored row id for a skill uri. A skill already
// known by uri is never re-fetched from the remote source; only its relation
// rows get touched. The redis cache maps uri to the stored id so hot skills
// shared by many occupations skip even the store lookup.
func (c *Crawler) resolveSkill(ctx context.Context, uri string) (*types.Skill, error) {
	if id, ok := c.cachedSkillID(ctx, uri); ok {
		return &types.Skill{ID: id, URI: uri}, nil
	}
	existing, err := c.store.GetSkillByURI(ctx, nil, uri)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		c.cacheSkillID(ctx, uri, existing.ID)
		return existing, nil
	}
	remote, err := c.client.FetchSkill(ctx, uri)
	if err != nil {
		return nil, err
	}
	stored, err := c.store.UpsertSkill(ctx, nil, &types.Skill{
		URI:         remote.URI,
		SkillType:   remote.SkillType,
		PrefLabel:   remote.Label,
		Description: remote.Description,
	})
	if err != nil {
		return nil, err
	}
	c.cacheSkillID(ctx, uri, stored.ID)
	return stored, nil
}

func (c *Crawler) cachedSkillID(ctx context.Context, uri string) (uuid.UUID, bool) {
	if c.redis == nil {
		return uuid.Nil, false
	}
	raw, err := c.redis.Get(ctx, skillIDKeyPrefix+uri).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Crawler) cacheSkillID(ctx context.Context, uri string, id uuid.UUID) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, skillIDKeyPrefix+uri, id.String(), c.cacheTTL).Err(); err != nil {
		c.log.Debug("Failed to cache skill id", "uri", uri, "error", err)
	}
}
