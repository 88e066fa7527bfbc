// Package analysis aggregates roster rows into the per-season and per-debut
// series behind the deep-dive charts, and smooths them with LOESS.
package analysis

import (
	"fmt"
	"strconv"
)

// Position groups.
const (
	Forward = "Forward"
	Defense = "Defense"
	Goalie  = "Goalie"
)

// Positions lists the position groups in plotting order.
var Positions = []string{Forward, Defense, Goalie}

// Country groups.
const (
	Canada        = "Canada"
	USA           = "USA"
	Scandinavia   = "Scandinavia"
	CentralEurope = "Central Europe"
	FormerUSSR    = "Former USSR"
	WesternEurope = "Western Europe"
	OtherEurope   = "Other Europe"
	Other         = "Other"
)

var countryGroups = map[string]string{
	"CAN": Canada,
	"USA": USA,
	"SWE": Scandinavia, "FIN": Scandinavia, "NOR": Scandinavia, "DNK": Scandinavia,
	"CZE": CentralEurope, "SVK": CentralEurope,
	"RUS": FormerUSSR, "BLR": FormerUSSR, "UKR": FormerUSSR, "KAZ": FormerUSSR,
	"DEU": WesternEurope, "AUT": WesternEurope, "SUI": WesternEurope,
	"FRA": OtherEurope, "GBR": OtherEurope, "IRL": OtherEurope, "NLD": OtherEurope, "BEL": OtherEurope,
}

// CountryGroup maps an ISO-3 birth country to its region.
func CountryGroup(code string) string {
	if g, ok := countryGroups[code]; ok {
		return g
	}
	return Other
}

// PositionGroup maps a roster position code to Forward, Defense or Goalie.
// Unknown codes return "".
func PositionGroup(code string) string {
	switch code {
	case "C", "L", "R":
		return Forward
	case "D":
		return Defense
	case "G":
		return Goalie
	}
	return ""
}

// SeasonLabel renders a season id such as 19171918 as "1917-1918".
func SeasonLabel(season int) string {
	s := strconv.Itoa(season)
	if len(s) != 8 {
		return s
	}
	return s[:4] + "-" + s[4:]
}

// DebutLabel renders a debut year such as 2000 as "2000-01".
func DebutLabel(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// StartYear returns the calendar year a season begins in.
func StartYear(season int) int {
	return season / 10000
}
