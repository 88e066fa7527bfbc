package livegames

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

// DefaultSchedule polls the scoreboard every 30 seconds.
const DefaultSchedule = "@every 30s"

const pollTimeout = 20 * time.Second

// ScoreSource fetches the current scoreboard.
type ScoreSource interface {
	ScoresNow(ctx context.Context) (nhlapi.Scoreboard, error)
}

// GameWriter persists game snapshots and lists the stored ones.
type GameWriter interface {
	UpsertGame(ctx context.Context, g hockeydecoded.Game) error
	ListGamesByStatus(ctx context.Context, statuses []hockeydecoded.GameStatus, limit int) ([]hockeydecoded.Game, error)
}

// SnapshotCache holds the latest live snapshot.
type SnapshotCache interface {
	Store(ctx context.Context, scores []hockeydecoded.LiveScore) error
}

// Broadcaster pushes a live snapshot to subscribers.
type Broadcaster interface {
	Broadcast(scores []hockeydecoded.LiveScore)
}

// PollResult summarises one poll.
type PollResult struct {
	Seen    int
	Saved   int
	Skipped int
	Failed  int
	// Closed counts stored live games that dropped off the board and were
	// marked final.
	Closed int
	Live   []hockeydecoded.LiveScore
}

// Poller copies the NHL scoreboard into the game table.
type Poller struct {
	source ScoreSource
	games  GameWriter
	cache  SnapshotCache
	hub    Broadcaster
	log    logrus.FieldLogger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithCache writes each live snapshot to c.
func WithCache(c SnapshotCache) PollerOption {
	return func(p *Poller) { p.cache = c }
}

// WithBroadcaster pushes each live snapshot to b.
func WithBroadcaster(b Broadcaster) PollerOption {
	return func(p *Poller) { p.hub = b }
}

// NewPoller returns a poller reading from source and writing to games.
func NewPoller(source ScoreSource, games GameWriter, log logrus.FieldLogger, opts ...PollerOption) *Poller {
	p := &Poller{source: source, games: games, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollOnce fetches the scoreboard and upserts every tracked game. A game
// that fails to save is logged and counted; the rest of the board is still
// written. Stored live games missing from the board are marked final. The
// live snapshot goes to the cache and broadcaster when set.
func (p *Poller) PollOnce(ctx context.Context) (PollResult, error) {
	board, err := p.source.ScoresNow(ctx)
	if err != nil {
		return PollResult{}, fmt.Errorf("livegames: fetch scoreboard: %w", err)
	}

	res := PollResult{Seen: len(board.Games), Live: []hockeydecoded.LiveScore{}}
	onBoard := make(map[string]bool, len(board.Games))
	for _, sg := range board.Games {
		onBoard[strconv.FormatInt(sg.ID, 10)] = true
		g, ok := GameFromAPI(sg)
		if !ok {
			res.Skipped++
			p.log.WithFields(logrus.Fields{"game_id": sg.ID, "state": sg.GameState}).Debug("skipping untracked game state")
			continue
		}
		if err := p.games.UpsertGame(ctx, g); err != nil {
			res.Failed++
			p.log.WithError(err).WithField("game_id", g.GameID).Error("failed to save game")
			continue
		}
		res.Saved++
		if g.Status == hockeydecoded.StatusLive {
			res.Live = append(res.Live, g.Score())
		}
	}

	res.Closed = p.closeMissing(ctx, onBoard)

	if p.cache != nil {
		if err := p.cache.Store(ctx, res.Live); err != nil {
			p.log.WithError(err).Warn("failed to cache live scores")
		}
	}
	if p.hub != nil {
		p.hub.Broadcast(res.Live)
	}

	p.log.WithFields(logrus.Fields{
		"seen":    res.Seen,
		"saved":   res.Saved,
		"skipped": res.Skipped,
		"failed":  res.Failed,
		"closed":  res.Closed,
		"live":    len(res.Live),
	}).Info("polled scoreboard")
	return res, nil
}

// closeMissing marks stored live games that are no longer on the board as
// final, keeping their last known score. It returns how many were closed.
func (p *Poller) closeMissing(ctx context.Context, onBoard map[string]bool) int {
	live, err := p.games.ListGamesByStatus(ctx, []hockeydecoded.GameStatus{hockeydecoded.StatusLive}, 0)
	if err != nil {
		p.log.WithError(err).Warn("failed to list stored live games")
		return 0
	}
	closed := 0
	for _, g := range live {
		if onBoard[g.GameID] {
			continue
		}
		g.Status = hockeydecoded.StatusFinal
		if err := p.games.UpsertGame(ctx, g); err != nil {
			p.log.WithError(err).WithField("game_id", g.GameID).Error("failed to close game")
			continue
		}
		closed++
		p.log.WithField("game_id", g.GameID).Info("closed live game missing from scoreboard")
	}
	return closed
}

// Run polls once immediately and then on schedule until ctx is cancelled.
// An empty schedule uses DefaultSchedule.
func (p *Poller) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("livegames: schedule %q: %w", schedule, err)
	}

	p.tick(ctx)
	c.Start()
	p.log.WithField("schedule", schedule).Info("score poller started")

	<-ctx.Done()
	<-c.Stop().Done()
	p.log.Info("score poller stopped")
	return nil
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	if _, err := p.PollOnce(ctx); err != nil {
		p.log.WithError(err).Error("poll failed")
	}
}
