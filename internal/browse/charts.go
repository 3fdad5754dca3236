package browse

import (
	"math"
	"sort"
	"strconv"

	"github.com/mrlokans/animedex/internal/entities"
)

// ChartBar is one bar of a profile chart. Percent is relative to the
// largest bar of the same chart.
type ChartBar struct {
	Label   string
	Count   int
	Percent int
}

// Charts groups the two profile charts.
type Charts struct {
	Types  []ChartBar
	Scores []ChartBar
	Total  int
}

// Empty reports whether there is nothing to chart.
func (c Charts) Empty() bool {
	return len(c.Types) == 0 && len(c.Scores) == 0
}

// ProfileCharts computes the type distribution and the floor(score)
// histogram of a user's favourites. Untyped and unscored entries are skipped.
// Types are sorted by count, scores ascending.
func ProfileCharts(favourites []entities.Favourite) Charts {
	types := map[string]int{}
	scores := map[int]int{}
	for _, f := range favourites {
		if f.Type != "" {
			types[f.Type]++
		}
		if f.Score != nil && *f.Score > 0 {
			scores[int(math.Floor(*f.Score))]++
		}
	}

	typeBars := make([]ChartBar, 0, len(types))
	for label, count := range types {
		typeBars = append(typeBars, ChartBar{Label: label, Count: count})
	}
	sort.Slice(typeBars, func(i, j int) bool {
		if typeBars[i].Count != typeBars[j].Count {
			return typeBars[i].Count > typeBars[j].Count
		}
		return typeBars[i].Label < typeBars[j].Label
	})

	buckets := make([]int, 0, len(scores))
	for bucket := range scores {
		buckets = append(buckets, bucket)
	}
	sort.Ints(buckets)
	scoreBars := make([]ChartBar, 0, len(buckets))
	for _, bucket := range buckets {
		scoreBars = append(scoreBars, ChartBar{Label: strconv.Itoa(bucket), Count: scores[bucket]})
	}

	return Charts{
		Types:  withPercent(typeBars),
		Scores: withPercent(scoreBars),
		Total:  len(favourites),
	}
}

func withPercent(bars []ChartBar) []ChartBar {
	peak := 0
	for _, b := range bars {
		peak = max(peak, b.Count)
	}
	if peak == 0 {
		return bars
	}
	for i := range bars {
		bars[i].Percent = bars[i].Count * 100 / peak
	}
	return bars
}
