package roster

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/logging"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

func intp(n int) *int { return &n }

func sampleRoster() nhlapi.Roster {
	return nhlapi.Roster{
		Forwards: []nhlapi.RosterPlayer{{
			ID:                 8478402,
			FirstName:          nhlapi.LocalizedString{Default: "Connor"},
			LastName:           nhlapi.LocalizedString{Default: "McDavid"},
			PositionCode:       "C",
			SweaterNumber:      intp(97),
			ShootsCatches:      "L",
			HeightInInches:     intp(73),
			WeightInPounds:     intp(194),
			BirthDate:          "1997-01-13",
			BirthCity:          nhlapi.LocalizedString{Default: "Richmond Hill"},
			BirthStateProvince: &nhlapi.LocalizedString{Default: "Ontario"},
			BirthCountry:       "CAN",
		}},
		Defensemen: []nhlapi.RosterPlayer{{ID: 8477498, PositionCode: "D", BirthCountry: "CAN", BirthDate: "1995-02-04"}},
		Goalies:    []nhlapi.RosterPlayer{{ID: 8479973, PositionCode: "G", BirthCountry: "CAN"}},
	}
}

func TestFlatten(t *testing.T) {
	rows := Flatten("EDM", 20242025, sampleRoster())
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	got := []string{rows[0].Position, rows[1].Position, rows[2].Position}
	if !reflect.DeepEqual(got, []string{"C", "D", "G"}) {
		t.Errorf("positions = %v, want [C D G]", got)
	}
	r := rows[0]
	if r.Team != "EDM" || r.Season != 20242025 || r.FirstName != "Connor" || r.BirthProvince != "Ontario" {
		t.Errorf("row = %+v", r)
	}
	if *r.HeightIn != 73 || *r.WeightLb != 194 || *r.Sweater != 97 {
		t.Errorf("numeric fields = %d %d %d", *r.HeightIn, *r.WeightLb, *r.Sweater)
	}
	if rows[1].BirthProvince != "" || rows[1].HeightIn != nil {
		t.Errorf("optional fields should be empty: %+v", rows[1])
	}
}

func TestRowPlayerConvertsHeight(t *testing.T) {
	p := Flatten("EDM", 20242025, sampleRoster())[0].Player()
	if p.NHLID != 8478402 || !p.HeightCM.Valid || p.HeightCM.Int64 != 185 {
		t.Errorf("player = %+v, want height 185cm", p)
	}
	if p.WeightLbs.Int64 != 194 {
		t.Errorf("weight = %d", p.WeightLbs.Int64)
	}
	if q := Flatten("EDM", 20242025, sampleRoster())[2].Player(); q.HeightCM.Valid {
		t.Errorf("missing height should stay null")
	}
}

func TestSeasonRange(t *testing.T) {
	got := SeasonRange(1917, 1919)
	want := []int{19171918, 19181919, 19191920}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeasonRange = %v, want %v", got, want)
	}
	if SeasonRange(2000, 1999) != nil {
		t.Errorf("reversed range should be empty")
	}
}

func TestParseSeasons(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"20232024,20242025", []int{20232024, 20242025}, false},
		{"2023, 1917", []int{20232024, 19171918}, false},
		{"", nil, false},
		{"20232025", nil, true},
		{"abc", nil, true},
		{"202", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseSeasons(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeasons(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSeasons(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTeams(t *testing.T) {
	got := ParseTeams(" edm,TOR,, mtl ")
	if !reflect.DeepEqual(got, []string{"EDM", "TOR", "MTL"}) {
		t.Errorf("ParseTeams = %v", got)
	}
}

func TestCSVRoundTripKeepsEmptyCells(t *testing.T) {
	rows := Flatten("EDM", 20242025, sampleRoster())
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(Header, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "EDM,20242025,8477498,,,D,,,1995-02-04,,,CAN,,," {
		t.Errorf("defenseman line = %q", lines[2])
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !reflect.DeepEqual(back, rows) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, rows)
	}
}

func TestReadCSVToleratesFloatsAndColumnOrder(t *testing.T) {
	in := "id,season,team,height_in,weight_lb,extra\n8478402,20242025,EDM,73.0,,x\n"
	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != 1 || *rows[0].HeightIn != 73 || rows[0].WeightLb != nil || rows[0].Team != "EDM" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := map[string]string{
		"missing column": "team,id\nEDM,1\n",
		"bad season":     "team,season,id\nEDM,x,1\n",
		"fractional":     "team,season,id,height_in\nEDM,20242025,1,73.5\n",
	}
	for name, in := range tests {
		if _, err := ReadCSV(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

type fakeClient struct {
	fail    map[string]bool
	seasons map[string][]int
	calls   []Job
	roster  *nhlapi.Roster
}

func (f *fakeClient) Teams(ctx context.Context) ([]nhlapi.Team, error) {
	return []nhlapi.Team{{TriCode: "TOR"}, {TriCode: "EDM"}, {TriCode: "EDM"}, {TriCode: ""}}, nil
}

func (f *fakeClient) RosterSeasons(ctx context.Context, team string) ([]int, error) {
	s, ok := f.seasons[team]
	if !ok {
		return nil, errors.New("no seasons")
	}
	return s, nil
}

func (f *fakeClient) Roster(ctx context.Context, team string, season int) (nhlapi.Roster, error) {
	f.calls = append(f.calls, Job{team, season})
	if f.fail[team] {
		return nhlapi.Roster{}, &nhlapi.APIError{StatusCode: 404, URL: team}
	}
	if f.roster != nil {
		return *f.roster, nil
	}
	return sampleRoster(), nil
}

type memPlayers struct {
	mu      sync.Mutex
	players map[int64]hockeydecoded.Player
}

func (m *memPlayers) UpsertPlayer(ctx context.Context, p hockeydecoded.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.NHLID] = p
	return nil
}

func TestIngesterContinuesPastFailures(t *testing.T) {
	client := &fakeClient{fail: map[string]bool{"XXX": true}}
	players := &memPlayers{players: map[int64]hockeydecoded.Player{}}
	in := NewIngester(client, logging.Discard(), WithPlayerWriter(players))

	jobs := Plan([]string{"EDM", "XXX", "TOR"}, []int{20232024, 20242025})
	rows, rep, err := in.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Requests != 6 || rep.Failures != 2 || rep.Rows != 12 {
		t.Errorf("report = %+v, want 6 requests, 2 failures, 12 rows", rep)
	}
	if len(rows) != 12 {
		t.Errorf("rows = %d, want 12", len(rows))
	}
	if len(client.calls) != 6 || client.calls[2] != (Job{"XXX", 20232024}) {
		t.Errorf("calls = %v", client.calls)
	}
	if len(players.players) != 3 {
		t.Errorf("stored players = %d, want 3", len(players.players))
	}
}

func TestIngesterKeepsMalformedRows(t *testing.T) {
	r := sampleRoster()
	r.Goalies[0].BirthDate = "13/01/1997"
	r.Defensemen[0].PositionCode = "W"
	client := &fakeClient{roster: &r}
	players := &memPlayers{players: map[int64]hockeydecoded.Player{}}
	in := NewIngester(client, logging.Discard(), WithPlayerWriter(players))

	rows, rep, err := in.Run(context.Background(), Plan([]string{"EDM"}, []int{20242025}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rows) != 3 || rep.Rows != 3 || rep.Invalid != 2 {
		t.Fatalf("rows = %d, report = %+v; want 3 rows, 2 invalid", len(rows), rep)
	}
	if len(players.players) != 1 {
		t.Errorf("stored players = %d, want only the valid one", len(players.players))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(back) != 3 || back[2].BirthDate != "13/01/1997" || back[1].Position != "W" {
		t.Errorf("csv rows = %+v", back)
	}
}

func TestIngesterStopsOnCancel(t *testing.T) {
	in := NewIngester(&fakeClient{}, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, rep, err := in.Run(ctx, Plan([]string{"EDM"}, []int{20242025}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rep.Requests != 0 {
		t.Errorf("requests = %d, want 0", rep.Requests)
	}
}

func TestAllTeamsDeduplicates(t *testing.T) {
	in := NewIngester(&fakeClient{}, logging.Discard())
	teams, err := in.AllTeams(context.Background())
	if err != nil {
		t.Fatalf("AllTeams failed: %v", err)
	}
	if !reflect.DeepEqual(teams, []string{"EDM", "TOR"}) {
		t.Errorf("teams = %v", teams)
	}
}

func TestPlanTeamSeasonsSkipsFailures(t *testing.T) {
	client := &fakeClient{seasons: map[string][]int{"EDM": {19791980, 19801981}}}
	in := NewIngester(client, logging.Discard())
	jobs, err := in.PlanTeamSeasons(context.Background(), []string{"EDM", "QUE"})
	if err != nil {
		t.Fatalf("PlanTeamSeasons failed: %v", err)
	}
	want := []Job{{"EDM", 19791980}, {"EDM", 19801981}}
	if !reflect.DeepEqual(jobs, want) {
		t.Errorf("jobs = %v, want %v", jobs, want)
	}
}
