package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/domain"
	"account-service/internal/repository"
	"account-service/internal/token"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return 0, repository.ErrUsernameTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	return user.ID, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetAll(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func newTestService(t *testing.T) (UserService, *fakeUserRepo, *token.Service) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens, err := token.NewService(token.Config{
		Secret: "test-secret",
		Issuer: "account-service-test",
	})
	require.NoError(t, err)
	return NewUserService(repo, tokens), repo, tokens
}

func TestCreateUserRequiresCredentials(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ username, password string }{
		{"", ""},
		{"alice", ""},
		{"", "pw1"},
		{"   ", "pw1"},
	} {
		result, err := svc.CreateUser(ctx, CreateUserCommand{Username: tc.username, Password: tc.password})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Username and Password are required", result.Message)
	}
	assert.Empty(t, repo.users)
}

func TestCreateUserDuplicate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw2"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, "User already exists!", second.Message)

	users, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateUserIssuesValidToken(t *testing.T) {
	svc, _, tokens := newTestService(t)

	result, err := svc.CreateUser(context.Background(), CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Token)
	require.NotNil(t, result.User)

	claims, err := tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	require.True(t, created.Success)

	got, err := svc.GetUserByID(ctx, GetUserByIDQuery{UserID: created.User.ID})
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "User found", got.Message)
	assert.Equal(t, "alice", got.User.Username)
	assert.Equal(t, created.User.MemberSince, got.User.MemberSince)
}

func TestGetUserByIDNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.GetUserByID(context.Background(), GetUserByIDQuery{UserID: 99})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "User not found!", result.Message)
}

func TestDeleteUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	missing, err := svc.DeleteUser(ctx, DeleteUserCommand{UserID: 99})
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Equal(t, "User not found!", missing.Message)

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, DeleteUserCommand{UserID: created.User.ID})
	require.NoError(t, err)
	assert.True(t, deleted.Success)
	assert.Equal(t, "User deleted successfully!", deleted.Message)

	again, err := svc.DeleteUser(ctx, DeleteUserCommand{UserID: created.User.ID})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, "User not found!", again.Message)
}

func TestUpdateUserNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.UpdateUser(context.Background(), UpdateUserCommand{UserID: 99, NewUsername: "bob"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "User not found!", result.Message)
}

func TestUpdateUserBlankFieldsLeaveRecordUnchanged(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, created.User.ID)
	require.NoError(t, err)

	result, err := svc.UpdateUser(ctx, UpdateUserCommand{UserID: created.User.ID})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "User updated successfully!", result.Message)

	after, err := repo.GetByID(ctx, created.User.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Username, after.Username)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestUpdateUserUsernameTaken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserCommand{Username: "bob", Password: "pw2"})
	require.NoError(t, err)

	result, err := svc.UpdateUser(ctx, UpdateUserCommand{UserID: bob.User.ID, NewUsername: "alice"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Username already taken!", result.Message)
}

func TestUpdateUserSameUsernameAllowed(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	result, err := svc.UpdateUser(ctx, UpdateUserCommand{UserID: created.User.ID, NewUsername: "alice"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestUpdateUserChangesPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	result, err := svc.UpdateUser(ctx, UpdateUserCommand{UserID: created.User.ID, NewPassword: "pw2"})
	require.NoError(t, err)
	require.True(t, result.Success)

	old, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.False(t, old.Success)

	fresh, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "alice", Password: "pw2"})
	require.NoError(t, err)
	assert.True(t, fresh.Success)
}

func TestAuthenticateUserRequiresCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.AuthenticateUser(context.Background(), AuthenticateUserQuery{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Username and password are required", result.Message)
}

func TestAuthenticateUserFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	wrongPassword, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "alice", Password: "nope"})
	require.NoError(t, err)
	unknownUser, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "mallory", Password: "nope"})
	require.NoError(t, err)

	assert.False(t, wrongPassword.Success)
	assert.False(t, unknownUser.Success)
	assert.Equal(t, "Invalid credentials!", wrongPassword.Message)
	assert.Equal(t, wrongPassword.Message, unknownUser.Message)
	assert.Empty(t, wrongPassword.Token)
	assert.Empty(t, unknownUser.Token)
}

func TestAuthenticateUserSuccess(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	result, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "Authentication successful!", result.Message)

	claims, err := tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, claims.UserID)
}

func TestGetAllUsersOrderedProjection(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.GetAllUsers(ctx, GetAllUsersQuery{})
	require.NoError(t, err)
	assert.True(t, empty.Success)
	assert.Empty(t, empty.Users)

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.CreateUser(ctx, CreateUserCommand{Username: name, Password: "pw"})
		require.NoError(t, err)
	}

	result, err := svc.GetAllUsers(ctx, GetAllUsersQuery{})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Users, 3)
	assert.Equal(t, "alice", result.Users[0].Username)
	assert.Equal(t, "bob", result.Users[1].Username)
	assert.Equal(t, "carol", result.Users[2].Username)
	assert.Less(t, result.Users[0].ID, result.Users[1].ID)
}

func TestCreateAuthenticateListScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.True(t, created.Success)
	assert.Equal(t, "alice", created.User.Username)
	assert.NotEmpty(t, created.Token)

	dup, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw2"})
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Equal(t, "User already exists!", dup.Message)

	all, err := svc.GetAllUsers(ctx, GetAllUsersQuery{})
	require.NoError(t, err)
	require.Len(t, all.Users, 1)
	assert.Equal(t, "alice", all.Users[0].Username)
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserCommand{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	result, err := svc.CreateUser(ctx, CreateUserCommand{Username: "Alice", Password: "pw1"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	login, err := svc.AuthenticateUser(ctx, AuthenticateUserQuery{Username: "ALICE", Password: "pw1"})
	require.NoError(t, err)
	assert.False(t, login.Success)
}
