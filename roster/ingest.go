package roster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

// Client is the subset of the NHL API the ingester needs.
type Client interface {
	Teams(ctx context.Context) ([]nhlapi.Team, error)
	RosterSeasons(ctx context.Context, team string) ([]int, error)
	Roster(ctx context.Context, team string, season int) (nhlapi.Roster, error)
}

// PlayerWriter persists players as they are ingested.
type PlayerWriter interface {
	UpsertPlayer(ctx context.Context, p hockeydecoded.Player) error
}

// Job is one roster request.
type Job struct {
	Team   string
	Season int
}

// Report summarises an ingestion run.
type Report struct {
	Requests      int
	Failures      int
	Rows          int
	Invalid       int
	StoreFailures int
	Failed        []Job
	Elapsed       time.Duration
}

// Ingester fetches rosters one request at a time. A failed request is
// logged and skipped; the run continues with the next job.
type Ingester struct {
	client  Client
	log     logrus.FieldLogger
	players PlayerWriter
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithPlayerWriter upserts every valid row as a player.
func WithPlayerWriter(w PlayerWriter) IngesterOption {
	return func(in *Ingester) {
		in.players = w
	}
}

// NewIngester creates an Ingester.
func NewIngester(client Client, log logrus.FieldLogger, opts ...IngesterOption) *Ingester {
	in := &Ingester{client: client, log: log}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Plan returns one job per team and season, teams outermost.
func Plan(teams []string, seasons []int) []Job {
	jobs := make([]Job, 0, len(teams)*len(seasons))
	for _, t := range teams {
		for _, s := range seasons {
			jobs = append(jobs, Job{Team: t, Season: s})
		}
	}
	return jobs
}

// AllTeams returns the tri-codes of every franchise the stats API knows,
// sorted and de-duplicated.
func (in *Ingester) AllTeams(ctx context.Context) ([]string, error) {
	teams, err := in.client.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: list teams: %w", err)
	}
	seen := make(map[string]struct{}, len(teams))
	codes := make([]string, 0, len(teams))
	for _, t := range teams {
		if t.TriCode == "" {
			continue
		}
		if _, ok := seen[t.TriCode]; ok {
			continue
		}
		seen[t.TriCode] = struct{}{}
		codes = append(codes, t.TriCode)
	}
	sort.Strings(codes)
	return codes, nil
}

// PlanTeamSeasons asks the API which seasons each team has rosters for and
// returns the matching jobs. Teams whose season list fails are logged and
// skipped.
func (in *Ingester) PlanTeamSeasons(ctx context.Context, teams []string) ([]Job, error) {
	var jobs []Job
	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return jobs, err
		}
		seasons, err := in.client.RosterSeasons(ctx, team)
		if err != nil {
			in.log.WithFields(logrus.Fields{"team": team, "error": err}).Warn("failed to list roster seasons")
			continue
		}
		for _, s := range seasons {
			jobs = append(jobs, Job{Team: team, Season: s})
		}
	}
	return jobs, nil
}

// Run executes jobs in order and returns every flattened row. Only
// cancellation of ctx stops the run early.
func (in *Ingester) Run(ctx context.Context, jobs []Job) ([]Row, Report, error) {
	start := time.Now()
	var rows []Row
	var rep Report

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			rep.Elapsed = time.Since(start)
			return rows, rep, err
		}
		rep.Requests++
		entry := in.log.WithFields(logrus.Fields{
			"team":   job.Team,
			"season": job.Season,
			"job":    fmt.Sprintf("%d/%d", i+1, len(jobs)),
		})

		roster, err := in.client.Roster(ctx, job.Team, job.Season)
		if err != nil {
			if ctx.Err() != nil {
				rep.Elapsed = time.Since(start)
				return rows, rep, ctx.Err()
			}
			rep.Failures++
			rep.Failed = append(rep.Failed, job)
			entry.WithError(err).Warn("failed to retrieve roster")
			continue
		}

		flat := Flatten(job.Team, job.Season, roster)
		for _, row := range flat {
			rows = append(rows, row)
			rep.Rows++
			// Malformed rows stay in the output so no player drops out of
			// the season counts; they are only kept out of the store.
			if err := row.Validate(); err != nil {
				rep.Invalid++
				entry.WithFields(logrus.Fields{"player_id": row.ID, "error": err}).Warn("roster row failed validation")
				continue
			}
			if in.players != nil {
				if err := in.players.UpsertPlayer(ctx, row.Player()); err != nil {
					rep.StoreFailures++
					entry.WithFields(logrus.Fields{"player_id": row.ID, "error": err}).Warn("failed to store player")
				}
			}
		}
		entry.WithField("players", len(flat)).Debug("roster retrieved")
	}

	rep.Elapsed = time.Since(start)
	in.log.WithFields(logrus.Fields{
		"requests": rep.Requests,
		"failures": rep.Failures,
		"rows":     rep.Rows,
		"invalid":  rep.Invalid,
		"elapsed":  rep.Elapsed.Round(time.Millisecond).String(),
	}).Info("roster ingestion finished")
	if rep.Invalid > 0 {
		in.log.WithField("invalid", rep.Invalid).Warn("roster rows kept despite failing validation")
	}
	return rows, rep, nil
}
