package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/charts"
	"github.com/dwiwad/hockeydecoded/nhlapi"
	"github.com/dwiwad/hockeydecoded/roster"
)

const defaultRosterCSV = "data/nhl_rosters.csv"

func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	teams := fs.String("teams", "", "comma-separated team tri-codes (default: every franchise)")
	seasons := fs.String("seasons", "", "comma-separated seasons as YYYY or YYYYYYYY (overrides -from/-to)")
	from := fs.Int("from", 1917, "first season start year")
	to := fs.Int("to", time.Now().Year()-1, "last season start year")
	allSeasons := fs.Bool("all-seasons", false, "ask the API which seasons each team played")
	out := fs.String("out", defaultRosterCSV, "output CSV path")
	rps := fs.Float64("rps", 2, "maximum API requests per second")
	timeout := fs.Duration("timeout", 15*time.Second, "per-request timeout")
	storePlayers := fs.Bool("store-players", false, "also upsert every player into the database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := loadEnv(); err != nil {
		return err
	}
	log := newLogger()

	client := nhlapi.New(nhlapi.WithRateLimit(*rps, 1), nhlapi.WithTimeout(*timeout))
	var opts []roster.IngesterOption
	if *storePlayers {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, roster.WithPlayerWriter(store))
	}
	in := roster.NewIngester(client, log, opts...)

	teamList := roster.ParseTeams(*teams)
	if len(teamList) == 0 {
		all, err := in.AllTeams(ctx)
		if err != nil {
			return err
		}
		teamList = all
	}

	var jobs []roster.Job
	switch {
	case *allSeasons:
		planned, err := in.PlanTeamSeasons(ctx, teamList)
		if err != nil {
			return err
		}
		jobs = planned
	case *seasons != "":
		list, err := roster.ParseSeasons(*seasons)
		if err != nil {
			return err
		}
		jobs = roster.Plan(teamList, list)
	default:
		if *to < *from {
			return fmt.Errorf("-to %d is before -from %d", *to, *from)
		}
		jobs = roster.Plan(teamList, roster.SeasonRange(*from, *to))
	}
	log.WithFields(logrus.Fields{"teams": len(teamList), "requests": len(jobs)}).Info("starting roster ingestion")

	rows, rep, err := in.Run(ctx, jobs)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if werr := roster.WriteCSVFile(*out, rows); werr != nil {
		return werr
	}
	fmt.Printf("wrote %d rows to %s (%d requests, %d failed, %d invalid rows)\n",
		rep.Rows, *out, rep.Requests, rep.Failures, rep.Invalid)
	return err
}

func runAnalyze(ctx context.Context, args []string) error {
	if err := loadEnv(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	input := fs.String("in", defaultRosterCSV, "roster CSV written by ingest")
	out := fs.String("out", "static/images/charts", "directory for rendered charts")
	dpi := fs.Int("dpi", charts.DefaultDPI, "chart resolution")
	publish := fs.Bool("publish", false, "upload rendered charts to S3")
	bucket := fs.String("bucket", hockeydecoded.EnvOr("CHART_BUCKET", ""), "S3 bucket for -publish")
	prefix := fs.String("prefix", hockeydecoded.EnvOr("CHART_PREFIX", "images/charts"), "S3 key prefix for -publish")
	region := fs.String("region", hockeydecoded.EnvOr("AWS_REGION", "us-east-1"), "AWS region for -publish")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := newLogger()

	// Fail before rendering when publishing cannot work.
	var pub *charts.Publisher
	if *publish {
		p, err := charts.NewPublisher(*bucket, *prefix, *region, log)
		if err != nil {
			return err
		}
		pub = p
	}

	rows, err := roster.ReadCSVFile(*input)
	if err != nil {
		return err
	}
	outputs, err := charts.Report(rows, charts.Renderer{Dir: *out, DPI: *dpi}, log)
	if err != nil {
		return err
	}
	fmt.Printf("rendered %d charts into %s\n", len(outputs), *out)

	if pub == nil {
		return nil
	}
	files := make([]string, 0, 2*len(outputs))
	for _, o := range outputs {
		files = append(files, o.Path, o.Thumb)
	}
	locations, err := pub.Publish(ctx, files)
	if err != nil {
		return err
	}
	fmt.Printf("published %d files to s3://%s/%s\n", len(locations), *bucket, *prefix)
	return nil
}
