package staff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
)

// RepositoryPort defines data access for the service.
type RepositoryPort interface {
	Create(ctx context.Context, m Member) (Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	List(ctx context.Context) ([]Member, error)
	Update(ctx context.Context, m Member) error
}

// AuditPort records account events.
type AuditPort interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// Service handles staff administration.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, audit: audit}
}

// CreateInput describes a new staff account.
type CreateInput struct {
	Email    string
	Name     string
	Role     Role
	Password string
	ActorID  int64
}

// UpdateInput carries the editable fields. Nil pointers leave a field
// unchanged.
type UpdateInput struct {
	ID       int64
	Email    *string
	Name     *string
	Role     *Role
	IsActive *bool
	ActorID  int64
}

// Create registers a staff member with a hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (Member, error) {
	if !ValidRole(input.Role) {
		return Member{}, ErrInvalidRole
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Member{}, err
	}
	created, err := s.repo.Create(ctx, Member{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		Role:         input.Role,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return Member{}, err
	}
	s.record(ctx, auditlog.Entry{
		LogType:  auditlog.LogAccount,
		Severity: auditlog.SeverityInfo,
		Message:  fmt.Sprintf("Staff %s created with role %s", created.Name, created.Role),
		ActorID:  input.ActorID,
	})
	return created, nil
}

// Get fetches one member.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// List returns all members.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	return s.repo.List(ctx)
}

// Update edits a member and records which fields changed. Inactive members
// cannot be edited except to reactivate them.
func (s *Service) Update(ctx context.Context, input UpdateInput) (Member, error) {
	current, err := s.repo.Get(ctx, input.ID)
	if err != nil {
		return Member{}, err
	}
	reactivating := input.IsActive != nil && *input.IsActive && !current.IsActive
	if !current.IsActive && !reactivating {
		return Member{}, ErrInactive
	}

	next := current
	var changed []string
	if input.Email != nil && *input.Email != current.Email {
		next.Email = strings.ToLower(strings.TrimSpace(*input.Email))
		changed = append(changed, "email")
	}
	if input.Name != nil && *input.Name != current.Name {
		next.Name = strings.TrimSpace(*input.Name)
		changed = append(changed, "name")
	}
	if input.Role != nil && *input.Role != current.Role {
		if !ValidRole(*input.Role) {
			return Member{}, ErrInvalidRole
		}
		next.Role = *input.Role
		changed = append(changed, "role")
	}
	if input.IsActive != nil && *input.IsActive != current.IsActive {
		next.IsActive = *input.IsActive
		changed = append(changed, "is_active")
	}
	if len(changed) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return Member{}, err
	}
	s.record(ctx, auditlog.Entry{
		LogType:       auditlog.LogAccount,
		Severity:      auditlog.SeverityInfo,
		Message:       fmt.Sprintf("Staff %s updated", next.Name),
		ActorID:       input.ActorID,
		ChangedFields: changed,
	})
	return next, nil
}

func (s *Service) record(ctx context.Context, e auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("record staff audit entry", slog.Any("error", err))
	}
}
