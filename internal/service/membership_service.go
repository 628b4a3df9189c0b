package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// MembershipService is the only writer of users.team_id. Team members are
// derived from that column, so a user is in at most one team and a team's
// member set always agrees with its users.
type MembershipService struct {
	teams  repository.TeamRepository
	users  repository.UserRepository
	tx     repository.TxRunner
	logger *zap.Logger
}

// NewMembershipService constructs the service.
func NewMembershipService(repos *repository.Repositories, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{
		teams:  repos.Teams,
		users:  repos.Users,
		tx:     repos.Tx,
		logger: logger.Named("membership"),
	}
}

// AddMemberInput identifies a user by id or, failing that, by email.
type AddMemberInput struct {
	TeamID string
	UserID string
	Email  string
}

// TeamMembersQuery pages through a team's derived members.
type TeamMembersQuery struct {
	Query    string
	Page     int
	PageSize int
	Paged    bool
}

// TeamDetail is a team with one page of members.
type TeamDetail struct {
	Team     domain.Team
	Total    int
	Page     int
	PageSize int
}

// CreateTeam creates an empty team.
func (s *MembershipService) CreateTeam(ctx context.Context, caller domain.Caller, name string) (*domain.Team, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	team := &domain.Team{Name: name}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, util.MapError(err)
	}
	team.Members = []domain.User{}
	return team, nil
}

// ListTeams returns every team with its member count, by name.
func (s *MembershipService) ListTeams(ctx context.Context) ([]domain.TeamSummary, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	if teams == nil {
		teams = []domain.TeamSummary{}
	}
	return teams, nil
}

// GetTeam loads a team and its members. Unpaged queries return every member.
func (s *MembershipService) GetTeam(ctx context.Context, teamID string, q TeamMembersQuery) (*TeamDetail, error) {
	team, err := s.teams.GetByID(ctx, strings.TrimSpace(teamID))
	if err != nil {
		return nil, notFoundOr(err, "Team", map[string]any{"team_id": teamID})
	}

	filter := repository.UserFilter{TeamID: &team.ID, Search: q.Query}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}

	page, size := 1, total
	if q.Paged {
		page, size = normalizePage(q.Page, q.PageSize, defaultUserPageSize)
		filter.Limit = size
		filter.Offset = (page - 1) * size
	}
	members, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	if members == nil {
		members = []domain.User{}
	}
	team.Members = members
	return &TeamDetail{Team: *team, Total: total, Page: page, PageSize: size}, nil
}

// AddMember moves a technician into a team, leaving any previous team.
// Adding a current member is a no-op.
func (s *MembershipService) AddMember(ctx context.Context, caller domain.Caller, input AddMemberInput) (*TeamDetail, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	teamID := strings.TrimSpace(input.TeamID)
	if teamID == "" {
		return nil, util.NewValidationError("teamId is required", nil)
	}
	userID, email := strings.TrimSpace(input.UserID), strings.TrimSpace(input.Email)
	if userID == "" && email == "" {
		return nil, util.NewValidationError("userId or email is required", nil)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return notFoundOr(err, "Team", map[string]any{"team_id": teamID})
		}
		var user *domain.User
		if userID != "" {
			user, err = s.users.GetByID(ctx, userID)
		} else {
			user, err = s.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return notFoundOr(err, "User", nil)
		}
		return s.move(ctx, user, &team.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTeam(ctx, teamID, TeamMembersQuery{})
}

// SetUserTeam moves a technician to teamID, or removes any user from their
// team when teamID is nil.
func (s *MembershipService) SetUserTeam(ctx context.Context, caller domain.Caller, userID string, teamID *string) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if teamID != nil && strings.TrimSpace(*teamID) == "" {
		teamID = nil
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "User", map[string]any{"user_id": userID})
		}
		if teamID == nil {
			return s.move(ctx, user, nil)
		}
		team, err := s.teams.GetByID(ctx, strings.TrimSpace(*teamID))
		if err != nil {
			return notFoundOr(err, "Team", map[string]any{"team_id": *teamID})
		}
		return s.move(ctx, user, &team.ID)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User", nil)
	}
	return user, nil
}

// move is the single write path for membership.
func (s *MembershipService) move(ctx context.Context, user *domain.User, teamID *string) error {
	if teamID != nil && user.Role != domain.RoleTechnician {
		return util.NewValidationError("Only technicians can be assigned to a team", map[string]any{"role": user.Role})
	}
	if sameTeam(user.TeamID, teamID) {
		return nil
	}
	if err := s.users.SetTeam(ctx, user.ID, teamID); err != nil {
		return notFoundOr(err, "User", nil)
	}
	s.logger.Info("membership changed",
		zap.String("user_id", user.ID),
		zap.Stringp("from_team", user.TeamID),
		zap.Stringp("to_team", teamID))
	user.TeamID = teamID
	return nil
}

func sameTeam(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
