package analysis

import (
	"sort"

	"github.com/dwiwad/hockeydecoded/roster"
)

// Share is one country group's slice of a season's roster spots.
type Share struct {
	Season int
	Group  string
	Count  int
	Total  int
	Share  float64
}

// CountryShares counts roster rows per season and country group. Rows with
// no birth country are left out of both the counts and the season totals.
// The result is ordered by season, then group name.
func CountryShares(rows []roster.Row) []Share {
	type key struct {
		season int
		group  string
	}
	counts := make(map[key]int)
	totals := make(map[int]int)
	for _, r := range rows {
		if r.BirthCountry == "" {
			continue
		}
		counts[key{r.Season, CountryGroup(r.BirthCountry)}]++
		totals[r.Season]++
	}

	shares := make([]Share, 0, len(counts))
	for k, n := range counts {
		t := totals[k.season]
		shares = append(shares, Share{
			Season: k.season,
			Group:  k.group,
			Count:  n,
			Total:  t,
			Share:  float64(n) / float64(t),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Season != shares[j].Season {
			return shares[i].Season < shares[j].Season
		}
		return shares[i].Group < shares[j].Group
	})
	return shares
}

// TopGroups returns the n groups with the largest share in the latest
// season, largest first. Ties break by name.
func TopGroups(shares []Share, n int) []string {
	latest := 0
	for _, s := range shares {
		if s.Season > latest {
			latest = s.Season
		}
	}
	var last []Share
	for _, s := range shares {
		if s.Season == latest {
			last = append(last, s)
		}
	}
	sort.SliceStable(last, func(i, j int) bool {
		if last[i].Share != last[j].Share {
			return last[i].Share > last[j].Share
		}
		return last[i].Group < last[j].Group
	})
	if n > len(last) {
		n = len(last)
	}
	groups := make([]string, 0, n)
	for _, s := range last[:n] {
		groups = append(groups, s.Group)
	}
	return groups
}

// Seasons returns the distinct seasons present in rows, ascending.
func Seasons(rows []roster.Row) []int {
	seen := make(map[int]struct{})
	for _, r := range rows {
		seen[r.Season] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// SeasonIndex maps each season to its position in the ascending list, which
// is the x coordinate used by every season chart.
func SeasonIndex(seasons []int) map[int]int {
	idx := make(map[int]int, len(seasons))
	for i, s := range seasons {
		idx[s] = i
	}
	return idx
}
