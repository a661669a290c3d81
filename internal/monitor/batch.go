package monitor

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// Group is every watch row sharing one trimmed product name.
// The name is searched once; each row's window is checked against the results.
type Group struct {
	Name string
	Rows []*model.GlobalProduct
}

// Keywords returns the keywords of the first row.
func (g Group) Keywords() []string {
	if len(g.Rows) == 0 {
		return nil
	}
	return g.Rows[0].Keywords
}

// Exclusions returns the exclusions of the first row.
func (g Group) Exclusions() []string {
	if len(g.Rows) == 0 {
		return nil
	}
	return g.Rows[0].Exclusions
}

// GroupProducts groups rows by trimmed name in first-seen order and keeps
// at most limit groups. Rows with a blank name are skipped. A non-positive
// limit keeps every group.
func GroupProducts(products []*model.GlobalProduct, limit int) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range products {
		if p == nil {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			groups[i].Rows = append(groups[i].Rows, p)
			continue
		}
		index[name] = len(groups)
		groups = append(groups, Group{Name: name, Rows: []*model.GlobalProduct{p}})
	}
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// resultFunc receives the filtered search results of one group.
// It is called from the worker goroutine that ran the search.
type resultFunc func(ctx context.Context, g Group, products []model.RawProduct)

// searchGroups searches every group with at most m.workers searches in
// flight. Each search is preceded by a random pause. A failed search is
// logged and does not stop the others; a restart request or a cancelled
// context skips the groups not started yet.
func (m *Monitor) searchGroups(ctx context.Context, s Searcher, groups []Group, fn resultFunc) error {
	m.logger.Info("starting pass",
		"groups", len(groups),
		"workers", m.workers,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, group := range groups {
		if m.restartPending.Load() {
			m.logger.Info("restart requested, aborting pass", "remaining", len(groups)-i)
			break
		}
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if m.restartPending.Load() {
				return nil
			}
			if err := m.sleep(ctx, m.randomDelay()); err != nil {
				return err
			}
			if m.restartPending.Load() {
				return nil
			}

			m.logger.Debug("searching",
				"query", group.Name,
				"index", i+1,
				"total", len(groups),
			)

			found, err := s.Search(ctx, group.Name, group.Keywords(), group.Exclusions())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.logger.Warn("search failed",
					"query", group.Name,
					"error", err,
				)
				return nil
			}

			m.logger.Debug("search complete",
				"query", group.Name,
				"count", len(found),
			)
			if len(found) > 0 {
				fn(ctx, group, found)
			}
			return nil
		})
	}

	err := g.Wait()

	m.logger.Info("pass complete",
		"groups", len(groups),
		"elapsed", time.Since(start),
	)
	return err
}

// randomDelay returns a pause in [max(1s, minDelay), max(minDelay+1s, maxDelay)].
func (m *Monitor) randomDelay() time.Duration {
	lo := max(time.Second, m.minDelay)
	hi := max(m.minDelay+time.Second, m.maxDelay)
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rand()*float64(hi-lo))
}
