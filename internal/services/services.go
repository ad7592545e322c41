package services

import (
	"log/slog"

	"github.com/oes-platform/exam-service/internal/cache"
	"github.com/oes-platform/exam-service/internal/events"
	"github.com/oes-platform/exam-service/internal/identity"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/sessions"
	"github.com/oes-platform/exam-service/internal/utils"
)

// ServiceManager bundles every service behind one constructor so the
// handler layer depends on a single wiring point.
type ServiceManager interface {
	Exam() ExamService
	Attempt() AttemptService
	Result() ResultService
	Dashboard() DashboardService
	Auth() AuthService
	User() UserService
}

type serviceManager struct {
	exam      ExamService
	attempt   AttemptService
	result    ResultService
	dashboard DashboardService
	auth      AuthService
	user      UserService
}

type Dependencies struct {
	Repo      repositories.Repository
	Publisher events.EventPublisher
	Store     sessions.Store
	Cache     cache.CacheService
	Identity  identity.Provider
	Logger    *slog.Logger
	Validator *utils.Validator
}

func NewServiceManager(deps Dependencies) ServiceManager {
	result := NewResultService(deps.Repo, deps.Publisher, deps.Logger, deps.Validator)

	return &serviceManager{
		exam:      NewExamService(deps.Repo, deps.Publisher, deps.Logger, deps.Validator),
		attempt:   NewAttemptService(deps.Repo, result, deps.Store, deps.Logger),
		result:    result,
		dashboard: NewDashboardService(deps.Repo, deps.Cache, deps.Logger),
		auth:      NewAuthService(deps.Repo, deps.Identity, deps.Logger, deps.Validator),
		user:      NewUserService(deps.Repo, deps.Logger, deps.Validator),
	}
}

func (m *serviceManager) Exam() ExamService           { return m.exam }
func (m *serviceManager) Attempt() AttemptService     { return m.attempt }
func (m *serviceManager) Result() ResultService       { return m.result }
func (m *serviceManager) Dashboard() DashboardService { return m.dashboard }
func (m *serviceManager) Auth() AuthService           { return m.auth }
func (m *serviceManager) User() UserService           { return m.user }
