// Package report aggregates OKR and sprint data into dashboard and report views.
package report

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
)

const (
	// AtRiskThreshold is the progress, in percent, below which a key result of an
	// active objective is flagged.
	AtRiskThreshold = 40.0
	// TrendThreshold is the velocity change, in percentage points, that counts as a trend.
	TrendThreshold = 5.0
)

// Trend classifies how a team's sprint velocity moved.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient"
)

// Dashboard summarizes the objectives of a scope.
type Dashboard struct {
	TotalObjectives    int                            `json:"totalObjectives"`
	ObjectivesByStatus map[domain.ObjectiveStatus]int `json:"objectivesByStatus"`
	KeyResults         int                            `json:"keyResults"`
	AverageProgress    float64                        `json:"averageProgress"`
	AtRisk             []AtRiskKeyResult              `json:"atRisk"`
}

type AtRiskKeyResult struct {
	KeyResultID    string  `json:"keyResultId"`
	ObjectiveID    string  `json:"objectiveId"`
	ObjectiveTitle string  `json:"objectiveTitle"`
	Title          string  `json:"title"`
	Progress       float64 `json:"progress"`
}

// TeamReport is the per-team line of a report.
type TeamReport struct {
	TeamID          string  `json:"teamId"`
	TenantID        string  `json:"tenantId"`
	Name            string  `json:"name"`
	Objectives      int     `json:"objectives"`
	AverageProgress float64 `json:"averageProgress"`
	Sprints         int     `json:"sprints"`
	LatestVelocity  float64 `json:"latestVelocity"`
	Trend           Trend   `json:"trend"`
}

type Report struct {
	Teams       []TeamReport `json:"teams"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// Aggregator builds dashboards and reports through the tenant-scoped executor.
type Aggregator struct {
	objectives domain.ObjectiveRepository
	teams      domain.TeamRepository
	exec       *dataaccess.Executor
	now        func() time.Time
	logger     *slog.Logger
}

func NewAggregator(objectives domain.ObjectiveRepository, teams domain.TeamRepository, exec *dataaccess.Executor, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{objectives: objectives, teams: teams, exec: exec, now: time.Now, logger: logger}
}

type okrData struct {
	objectives []*domain.Objective
	keyResults []*domain.KeyResult
}

// loadOKRs fetches objectives and key results concurrently. ok is false when the scope
// has no tenant.
func (a *Aggregator) loadOKRs(ctx context.Context, g *errgroup.Group, scope dataaccess.Scope, out *okrData, ok *bool) {
	g.Go(func() error {
		objs, fetched, err := dataaccess.Fetch(ctx, a.exec, scope, "objectives", a.objectives.List)
		out.objectives, *ok = objs, fetched
		return err
	})
	g.Go(func() error {
		krs, _, err := dataaccess.Fetch(ctx, a.exec, scope, "key_results", a.objectives.ListKeyResults)
		out.keyResults = krs
		return err
	})
}

// Dashboard computes objective counts, average key-result progress and at-risk key results.
func (a *Aggregator) Dashboard(ctx context.Context, scope dataaccess.Scope) (*Dashboard, bool, error) {
	if !scope.Resolvable() {
		return nil, false, nil
	}
	var (
		data okrData
		ok   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	a.loadOKRs(gctx, g, scope, &data, &ok)
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return buildDashboard(data.objectives, data.keyResults), true, nil
}

func buildDashboard(objectives []*domain.Objective, keyResults []*domain.KeyResult) *Dashboard {
	d := &Dashboard{
		ObjectivesByStatus: map[domain.ObjectiveStatus]int{},
		AtRisk:             []AtRiskKeyResult{},
	}
	byID := make(map[string]*domain.Objective, len(objectives))
	for _, o := range objectives {
		byID[o.ID] = o
		d.ObjectivesByStatus[o.Status]++
	}
	d.TotalObjectives = len(objectives)

	var sum float64
	for _, kr := range keyResults {
		o, known := byID[kr.ObjectiveID]
		if !known {
			continue
		}
		p := kr.Progress()
		sum += p
		d.KeyResults++
		if o.Status == domain.ObjectiveActive && p < AtRiskThreshold {
			d.AtRisk = append(d.AtRisk, AtRiskKeyResult{
				KeyResultID:    kr.ID,
				ObjectiveID:    o.ID,
				ObjectiveTitle: o.Title,
				Title:          kr.Title,
				Progress:       p,
			})
		}
	}
	if d.KeyResults > 0 {
		d.AverageProgress = sum / float64(d.KeyResults)
	}
	sort.Slice(d.AtRisk, func(i, j int) bool { return d.AtRisk[i].Progress < d.AtRisk[j].Progress })
	return d
}

// Reports computes per-team progress and sprint velocity trends.
func (a *Aggregator) Reports(ctx context.Context, scope dataaccess.Scope) (*Report, bool, error) {
	if !scope.Resolvable() {
		return nil, false, nil
	}
	var (
		data    okrData
		ok      bool
		teams   []*domain.Team
		sprints []*domain.Sprint
	)
	g, gctx := errgroup.WithContext(ctx)
	a.loadOKRs(gctx, g, scope, &data, &ok)
	g.Go(func() error {
		var err error
		teams, _, err = dataaccess.Fetch(gctx, a.exec, scope, "teams", a.teams.List)
		return err
	})
	g.Go(func() error {
		var err error
		sprints, _, err = dataaccess.Fetch(gctx, a.exec, scope, "sprints:", func(ctx context.Context, f domain.TenantFilter) ([]*domain.Sprint, error) {
			return a.teams.ListSprints(ctx, f, "")
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Report{Teams: buildTeamReports(teams, sprints, data), GeneratedAt: a.now().UTC()}, true, nil
}

func buildTeamReports(teams []*domain.Team, sprints []*domain.Sprint, data okrData) []TeamReport {
	objectivesByTeam := map[string][]string{}
	for _, o := range data.objectives {
		if o.TeamID != nil {
			objectivesByTeam[*o.TeamID] = append(objectivesByTeam[*o.TeamID], o.ID)
		}
	}
	progressByObjective := map[string][]float64{}
	for _, kr := range data.keyResults {
		progressByObjective[kr.ObjectiveID] = append(progressByObjective[kr.ObjectiveID], kr.Progress())
	}
	sprintsByTeam := map[string][]*domain.Sprint{}
	for _, s := range sprints {
		sprintsByTeam[s.TeamID] = append(sprintsByTeam[s.TeamID], s)
	}

	out := make([]TeamReport, 0, len(teams))
	for _, t := range teams {
		r := TeamReport{TeamID: t.ID, TenantID: t.TenantID, Name: t.Name}
		var sum float64
		var n int
		for _, oid := range objectivesByTeam[t.ID] {
			r.Objectives++
			for _, p := range progressByObjective[oid] {
				sum += p
				n++
			}
		}
		if n > 0 {
			r.AverageProgress = sum / float64(n)
		}
		ts := sprintsByTeam[t.ID]
		r.Sprints = len(ts)
		r.Trend = ClassifyTrend(ts)
		if len(ts) > 0 {
			r.LatestVelocity = latest(ts).Velocity()
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ClassifyTrend compares the first and last sprint velocities by start date.
func ClassifyTrend(sprints []*domain.Sprint) Trend {
	if len(sprints) < 2 {
		return TrendInsufficient
	}
	ordered := make([]*domain.Sprint, len(sprints))
	copy(ordered, sprints)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartDate.Before(ordered[j].StartDate) })

	delta := ordered[len(ordered)-1].Velocity() - ordered[0].Velocity()
	switch {
	case delta > TrendThreshold:
		return TrendImproving
	case delta < -TrendThreshold:
		return TrendDeclining
	}
	return TrendStable
}

func latest(sprints []*domain.Sprint) *domain.Sprint {
	l := sprints[0]
	for _, s := range sprints[1:] {
		if s.StartDate.After(l.StartDate) {
			l = s
		}
	}
	return l
}
