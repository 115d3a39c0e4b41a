package offpage

import (
	"context"
	"fmt"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

// wideCoverage is the indexed page count that earns the coverage bonus.
const wideCoverage = 10000

// IndexingEstimator scores the site's search index footprint on [0,10].
type IndexingEstimator struct {
	signals signals.Client
}

func (x *IndexingEstimator) Estimate(ctx context.Context, in Inputs) (types.Indexing, error) {
	brand := in.Brand
	if brand == "" {
		brand = in.Domain
	}
	outs := signals.QueryAll(ctx, x.signals,
		signals.SiteQuery(in.Domain),
		signals.BrandedPagesQuery(in.Domain, brand),
		signals.DocumentsQuery(in.Domain),
	)
	if signals.AllFailed(outs) {
		return types.Indexing{}, fmt.Errorf("indexing: %w", signals.FirstErr(outs))
	}
	pages, branded, docs := outs[0].Result, outs[1].Result, outs[2].Result

	res := types.Indexing{
		IndexedPages: int(pages.Count),
		BrandedPages: int(branded.Count),
		Documents:    int(docs.Count),
	}
	res.Score = indexingScore(pages.Score, branded.Score, docs.Score, pages.Count)
	res.Level = levelFor(float64(res.Score) * 10)
	return res, nil
}

func indexingScore(pages, branded, docs float64, indexed int64) int {
	v := 0.6*pages + 0.2*branded + 0.2*docs
	if indexed >= wideCoverage {
		v++
	}
	return roundClamp(v, 0, 10)
}
