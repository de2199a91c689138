package staff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
)

type memoryRepo struct {
	members map[int64]Member
	entries []auditlog.Entry
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{members: make(map[int64]Member)}
}

func (r *memoryRepo) Create(ctx context.Context, m Member) (Member, error) {
	for _, existing := range r.members {
		if existing.Email == m.Email {
			return Member{}, ErrDuplicateEmail
		}
	}
	r.nextID++
	m.ID = r.nextID
	m.IsActive = true
	r.members[m.ID] = m
	return m, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Member, error) {
	if m, ok := r.members[id]; ok {
		return m, nil
	}
	return Member{}, ErrStaffNotFound
}

func (r *memoryRepo) List(ctx context.Context) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, m Member) error {
	if _, ok := r.members[m.ID]; !ok {
		return ErrStaffNotFound
	}
	r.members[m.ID] = m
	return nil
}

func (r *memoryRepo) Record(ctx context.Context, e auditlog.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(nil, repo, repo)

	created, err := svc.Create(context.Background(), CreateInput{
		Email:    "Ani@CacaoFlow.Local",
		Name:     " Ani ",
		Role:     RoleFermenter,
		Password: "correct-horse",
		ActorID:  1,
	})
	require.NoError(t, err)
	require.Equal(t, "ani@cacaoflow.local", created.Email)
	require.Equal(t, "Ani", created.Name)
	require.True(t, created.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.members[created.ID].PasswordHash), []byte("correct-horse")))
	require.Len(t, repo.entries, 1)
	require.Equal(t, auditlog.LogAccount, repo.entries[0].LogType)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(nil, newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Email: "x@y.z", Name: "X", Role: "barista", Password: "longenough",
	})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestUpdateRecordsChangedFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(nil, repo, repo)
	created, err := svc.Create(context.Background(), CreateInput{
		Email: "ani@cacaoflow.local", Name: "Ani", Role: RoleFermenter, Password: "correct-horse",
	})
	require.NoError(t, err)
	repo.entries = nil

	role := RoleGrader
	updated, err := svc.Update(context.Background(), UpdateInput{
		ID:      created.ID,
		Name:    strPtr("Ani Lestari"),
		Role:    &role,
		ActorID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "Ani Lestari", updated.Name)
	require.Equal(t, RoleGrader, updated.Role)

	require.Len(t, repo.entries, 1)
	require.ElementsMatch(t, []string{"name", "role"}, repo.entries[0].ChangedFields)
}

func TestUpdateNoChangesWritesNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(nil, repo, repo)
	created, err := svc.Create(context.Background(), CreateInput{
		Email: "ani@cacaoflow.local", Name: "Ani", Role: RoleFermenter, Password: "correct-horse",
	})
	require.NoError(t, err)
	repo.entries = nil

	_, err = svc.Update(context.Background(), UpdateInput{
		ID:   created.ID,
		Name: strPtr("Ani"),
	})
	require.NoError(t, err)
	require.Empty(t, repo.entries)
}

func TestUpdateInactiveOnlyReactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(nil, repo, repo)
	created, err := svc.Create(context.Background(), CreateInput{
		Email: "ani@cacaoflow.local", Name: "Ani", Role: RoleFermenter, Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateInput{ID: created.ID, IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateInput{ID: created.ID, Name: strPtr("Someone Else")})
	require.ErrorIs(t, err, ErrInactive)

	reactivated, err := svc.Update(context.Background(), UpdateInput{ID: created.ID, IsActive: boolPtr(true)})
	require.NoError(t, err)
	require.True(t, reactivated.IsActive)
}

func TestUpdateUnknownMember(t *testing.T) {
	svc := NewService(nil, newMemoryRepo(), nil)
	_, err := svc.Update(context.Background(), UpdateInput{ID: 99, Name: strPtr("Ghost")})
	require.ErrorIs(t, err, ErrStaffNotFound)
}
