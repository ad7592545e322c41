package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/oes-platform/exam-service/internal/config"
)

// CasdoorProvider implements Provider against a Casdoor deployment.
type CasdoorProvider struct {
	client       *casdoorsdk.Client
	organization string
	application  string
}

func NewCasdoorProvider(cfg config.CasdoorConfig) *CasdoorProvider {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorProvider{
		client:       client,
		organization: cfg.Organization,
		application:  cfg.Application,
	}
}

func (p *CasdoorProvider) CreateUser(_ context.Context, email, password, displayName string) (Account, error) {
	existing, err := p.client.GetUserByEmail(email)
	if err == nil && existing != nil {
		return Account{}, ErrUserExists
	}

	user := &casdoorsdk.User{
		Owner:             p.organization,
		Name:              usernameFromEmail(email),
		CreatedTime:       time.Now().Format(time.RFC3339),
		DisplayName:       displayName,
		Email:             email,
		Password:          password,
		SignupApplication: p.application,
	}

	ok, err := p.client.AddUser(user)
	if err != nil {
		return Account{}, fmt.Errorf("identity: create user: %w", err)
	}
	if !ok {
		return Account{}, ErrUserExists
	}

	created, err := p.client.GetUserByEmail(email)
	if err != nil || created == nil {
		return Account{}, fmt.Errorf("identity: read back created user: %w", err)
	}

	return toAccount(created), nil
}

func (p *CasdoorProvider) GetUserByEmail(_ context.Context, email string) (Account, error) {
	user, err := p.client.GetUserByEmail(email)
	if err != nil {
		return Account{}, fmt.Errorf("identity: get user by email: %w", err)
	}
	if user == nil {
		return Account{}, ErrUserNotFound
	}
	return toAccount(user), nil
}

func (p *CasdoorProvider) CheckPassword(_ context.Context, email, password string) error {
	user, err := p.client.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("identity: get user by email: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	ok, err := p.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    p.organization,
		Name:     user.Name,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("identity: check password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func (p *CasdoorProvider) SetPassword(_ context.Context, email, oldPassword, newPassword string) error {
	user, err := p.client.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("identity: get user by email: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	ok, err := p.client.SetPassword(p.organization, user.Name, oldPassword, newPassword)
	if err != nil {
		return fmt.Errorf("identity: set password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func toAccount(user *casdoorsdk.User) Account {
	id := user.Id
	if id == "" {
		id = fmt.Sprintf("%s/%s", user.Owner, user.Name)
	}
	return Account{
		ID:          id,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
