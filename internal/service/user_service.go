package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"account-service/internal/domain"
	"account-service/internal/repository"
	"account-service/internal/token"
)

// Commands and queries accepted by the user service. The HTTP adapter builds
// these from request payloads; handlers never see transport types.
type (
	CreateUserCommand struct {
		Username string
		Password string
	}

	UpdateUserCommand struct {
		UserID      int64
		NewUsername string
		NewPassword string
	}

	DeleteUserCommand struct {
		UserID int64
	}

	GetUserByIDQuery struct {
		UserID int64
	}

	GetAllUsersQuery struct{}

	AuthenticateUserQuery struct {
		Username string
		Password string
	}
)

// UserSummary is the password-free projection of a user returned in results.
type UserSummary struct {
	ID          int64
	Username    string
	MemberSince time.Time
}

// Results carry a Success flag and a human-readable message instead of
// surfacing business-rule violations as errors. The error return of each
// handler is reserved for infrastructure failures.
type (
	CreateUserResult struct {
		Success bool
		Message string
		Token   string
		User    *UserSummary
	}

	UpdateUserResult struct {
		Success bool
		Message string
		User    *UserSummary
	}

	DeleteUserResult struct {
		Success bool
		Message string
	}

	GetUserResult struct {
		Success bool
		Message string
		User    *UserSummary
	}

	GetAllUsersResult struct {
		Success bool
		Users   []UserSummary
	}

	AuthenticateUserResult struct {
		Success bool
		Message string
		Token   string
		User    *UserSummary
	}
)

// UserService exposes the account operations.
type UserService interface {
	CreateUser(ctx context.Context, cmd CreateUserCommand) (CreateUserResult, error)
	UpdateUser(ctx context.Context, cmd UpdateUserCommand) (UpdateUserResult, error)
	DeleteUser(ctx context.Context, cmd DeleteUserCommand) (DeleteUserResult, error)
	GetUserByID(ctx context.Context, q GetUserByIDQuery) (GetUserResult, error)
	GetAllUsers(ctx context.Context, q GetAllUsersQuery) (GetAllUsersResult, error)
	AuthenticateUser(ctx context.Context, q AuthenticateUserQuery) (AuthenticateUserResult, error)
}

type userService struct {
	users  repository.UserRepository
	tokens *token.Service
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, tokens *token.Service) UserService {
	return &userService{
		users:  users,
		tokens: tokens,
		now:    time.Now,
	}
}

func (s *userService) CreateUser(ctx context.Context, cmd CreateUserCommand) (CreateUserResult, error) {
	username := strings.TrimSpace(cmd.Username)
	password := strings.TrimSpace(cmd.Password)

	if isBlank(username) || isBlank(password) {
		return CreateUserResult{Message: "Username and Password are required"}, nil
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return CreateUserResult{}, err
	}
	if !usernameAvailable(existing, 0) {
		return CreateUserResult{Message: "User already exists!"}, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return CreateUserResult{}, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// two concurrent signups can both pass the lookup; the store's
		// uniqueness constraint is the backstop
		if errors.Is(err, repository.ErrUsernameTaken) {
			return CreateUserResult{Message: "User already exists!"}, nil
		}
		return CreateUserResult{}, err
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		return CreateUserResult{}, err
	}

	return CreateUserResult{
		Success: true,
		Message: "User Created Successfully!",
		Token:   signed,
		User:    summarize(user),
	}, nil
}

func (s *userService) UpdateUser(ctx context.Context, cmd UpdateUserCommand) (UpdateUserResult, error) {
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UpdateUserResult{Message: "User not found!"}, nil
		}
		return UpdateUserResult{}, err
	}

	newUsername := strings.TrimSpace(cmd.NewUsername)
	newPassword := strings.TrimSpace(cmd.NewPassword)

	if !isBlank(newUsername) && newUsername != user.Username {
		existing, err := s.users.GetByUsername(ctx, newUsername)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return UpdateUserResult{}, err
		}
		if !usernameAvailable(existing, user.ID) {
			return UpdateUserResult{Message: "Username already taken!"}, nil
		}
	}

	// blank fields mean "leave unchanged"; neither can be cleared here
	if !isBlank(newUsername) {
		user.Username = newUsername
	}
	if !isBlank(newPassword) {
		hash, err := hashPassword(newPassword)
		if err != nil {
			return UpdateUserResult{}, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return UpdateUserResult{Message: "Username already taken!"}, nil
		case errors.Is(err, repository.ErrUserNotFound):
			return UpdateUserResult{Message: "User not found!"}, nil
		}
		return UpdateUserResult{}, err
	}

	return UpdateUserResult{
		Success: true,
		Message: "User updated successfully!",
		User:    summarize(user),
	}, nil
}

func (s *userService) DeleteUser(ctx context.Context, cmd DeleteUserCommand) (DeleteUserResult, error) {
	if err := s.users.Delete(ctx, cmd.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return DeleteUserResult{Message: "User not found!"}, nil
		}
		return DeleteUserResult{}, err
	}
	return DeleteUserResult{Success: true, Message: "User deleted successfully!"}, nil
}

func (s *userService) GetUserByID(ctx context.Context, q GetUserByIDQuery) (GetUserResult, error) {
	user, err := s.users.GetByID(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return GetUserResult{Message: "User not found!"}, nil
		}
		return GetUserResult{}, err
	}
	return GetUserResult{
		Success: true,
		Message: "User found",
		User:    summarize(user),
	}, nil
}

func (s *userService) GetAllUsers(ctx context.Context, q GetAllUsersQuery) (GetAllUsersResult, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return GetAllUsersResult{}, err
	}

	summaries := make([]UserSummary, len(users))
	for i := range users {
		summaries[i] = *summarize(&users[i])
	}
	return GetAllUsersResult{Success: true, Users: summaries}, nil
}

func (s *userService) AuthenticateUser(ctx context.Context, q AuthenticateUserQuery) (AuthenticateUserResult, error) {
	username := strings.TrimSpace(q.Username)
	password := strings.TrimSpace(q.Password)

	if isBlank(username) || isBlank(password) {
		return AuthenticateUserResult{Message: "Username and password are required"}, nil
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// burn a comparison so unknown-user and wrong-password
			// responses are indistinguishable, in timing too
			passwordsMatch(dummyHash, password)
			return AuthenticateUserResult{Message: "Invalid credentials!"}, nil
		}
		return AuthenticateUserResult{}, err
	}

	if !passwordsMatch(user.PasswordHash, password) {
		return AuthenticateUserResult{Message: "Invalid credentials!"}, nil
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		return AuthenticateUserResult{}, err
	}

	return AuthenticateUserResult{
		Success: true,
		Message: "Authentication successful!",
		Token:   signed,
		User:    summarize(user),
	}, nil
}

func summarize(user *domain.User) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		MemberSince: user.CreatedAt,
	}
}
