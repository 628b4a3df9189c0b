package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/triage"
)

// Services is the full application service graph.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Membership    *MembershipService
	Requests      *RequestService
	Equipment     *EquipmentService
	Sensors       *SensorService
	Dashboard     *DashboardService
	Export        *ExportService
	Triage        *TriageService
	Notifications *NotificationService
}

// Options carries what the service graph is built from.
type Options struct {
	Auth         config.AuthConfig
	Notification config.NotificationConfig
	Tokens       *auth.TokenManager
	Repos        *repository.Repositories
	Dispatcher   events.Dispatcher
	Predictor    triage.Predictor
	Explainer    triage.Explainer
	Locker       triage.Locker
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// New wires every service over the same repositories and dispatcher.
func New(opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	membership := NewMembershipService(opts.Repos, logger)
	requests := NewRequestService(RequestDependencies{
		Repos:      opts.Repos,
		Dispatcher: opts.Dispatcher,
		Logger:     logger,
	})
	return &Services{
		Auth:       NewAuthService(opts.Auth, opts.Repos.Users, opts.Tokens, logger),
		Users:      NewUserService(opts.Auth, opts.Repos, membership, logger),
		Membership: membership,
		Requests:   requests,
		Equipment:  NewEquipmentService(opts.Repos, logger),
		Sensors:    NewSensorService(opts.Repos, logger),
		Dashboard:  NewDashboardService(opts.Repos, logger),
		Export:     NewExportService(opts.Repos, logger),
		Triage: NewTriageService(TriageDependencies{
			Repos:      opts.Repos,
			Requests:   requests,
			Predictor:  opts.Predictor,
			Explainer:  opts.Explainer,
			Locker:     opts.Locker,
			Dispatcher: opts.Dispatcher,
			Metrics:    opts.Metrics,
			Logger:     logger,
		}),
		Notifications: NewNotificationService(opts.Dispatcher, logger, opts.Notification),
	}
}
