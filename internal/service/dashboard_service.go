package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/risk"
	"github.com/spec-kit/gearguard/pkg/util"
)

const (
	dashboardTopRisk     = 5
	dashboardPredictions = 10
	dashboardRequests    = 15
	dashboardTeams       = 15
)

// Dashboard is the admin overview.
type Dashboard struct {
	CriticalEquipmentCount int
	RiskDistribution       map[risk.Level]int
	TopRiskEquipment       []domain.Equipment
	LatestPredictions      []domain.Prediction
	LatestRequests         []domain.Request
	Teams                  []repository.TeamLoad
	TechnicianUtilization  []repository.TechnicianLoad
}

// DashboardService aggregates read models for admins.
type DashboardService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(repos *repository.Repositories, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repos: repos, logger: logger.Named("dashboard")}
}

// Get loads every dashboard section concurrently.
func (s *DashboardService) Get(ctx context.Context, caller domain.Caller) (*Dashboard, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	var (
		out    Dashboard
		scores []float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		scores, err = s.repos.Equipment.ActiveRiskScores(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TopRiskEquipment, err = s.repos.Equipment.TopRisk(gctx, dashboardTopRisk)
		return err
	})
	g.Go(func() (err error) {
		out.LatestPredictions, err = s.repos.Predictions.Latest(gctx, dashboardPredictions)
		return err
	})
	g.Go(func() (err error) {
		out.LatestRequests, err = s.repos.Requests.List(gctx, repository.RequestFilter{Limit: dashboardRequests})
		return err
	})
	g.Go(func() (err error) {
		out.Teams, err = s.repos.Teams.Loads(gctx, dashboardTeams)
		return err
	})
	g.Go(func() (err error) {
		out.TechnicianUtilization, err = s.repos.Requests.TechnicianLoads(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load dashboard", zap.Error(err))
		return nil, util.MapError(err)
	}

	out.RiskDistribution = make(map[risk.Level]int, len(risk.Levels))
	for _, level := range risk.Levels {
		out.RiskDistribution[level] = 0
	}
	for _, score := range scores {
		out.RiskDistribution[risk.Bucket(score)]++
	}
	out.CriticalEquipmentCount = out.RiskDistribution[risk.LevelCritical]
	return &out, nil
}
