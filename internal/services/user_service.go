package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/expirycare/expirycare/internal/models"
	"github.com/expirycare/expirycare/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxFamilyViewers caps the reminder fan-out per account.
const maxFamilyViewers = 5

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// UserService encapsulates the business logic for user operations.
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

// RegisterUser registers a new user after hashing their password.
func (s *UserService) RegisterUser(ctx context.Context, user *models.User) (*models.User, error) {
	logrus.Info("Registering new user")

	if user.Email == "" || user.Username == "" || user.HashedPassword == "" {
		logrus.Warn("Missing required fields during registration")
		return nil, fmt.Errorf("missing required user fields")
	}

	if !emailRegex.MatchString(user.Email) {
		logrus.WithField("email", user.Email).Warn("Invalid email format during registration")
		return nil, fmt.Errorf("invalid email format")
	}

	// Check if the email is already registered
	existingUser, _ := s.repo.GetUserByEmail(ctx, user.Email)
	if existingUser != nil {
		logrus.WithField("email", user.Email).Warn("Email already in use")
		return nil, fmt.Errorf("email already in use")
	}

	// Hash the user's password.
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(user.HashedPassword), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user.HashedPassword = string(hashedPwd)
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if user.Role == "" {
		user.Role = "user"
	}
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}

	createdUser, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("User registration failed")
		return nil, fmt.Errorf("failed to register user: %v", err)
	}

	return createdUser, nil
}

// AuthenticateUser verifies credentials and returns the account.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		logrus.WithField("email", email).Warn("Password mismatch during login")
		return nil, fmt.Errorf("invalid email or password")
	}

	return user, nil
}

// GetUser fetches a user by their hex ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %v", err)
	}
	return s.repo.GetUserByID(ctx, objID)
}

// UpdateUser applies profile edits. Role, plan and password are not
// editable through this path.
func (s *UserService) UpdateUser(ctx context.Context, id string, updated *models.User) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %v", err)
	}

	existing, err := s.repo.GetUserByID(ctx, objID)
	if err != nil {
		return nil, err
	}

	if updated.Username != "" {
		existing.Username = updated.Username
	}
	if updated.Email != "" {
		if !emailRegex.MatchString(updated.Email) {
			return nil, fmt.Errorf("invalid email format")
		}
		existing.Email = updated.Email
	}

	return s.repo.UpdateUser(ctx, objID, existing)
}

// UpdateFamilyViewers replaces the user's family viewer list after
// validating every address.
func (s *UserService) UpdateFamilyViewers(ctx context.Context, id string, viewers []models.FamilyViewer) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID: %v", err)
	}

	if len(viewers) > maxFamilyViewers {
		return fmt.Errorf("at most %d family viewers are allowed", maxFamilyViewers)
	}
	for _, v := range viewers {
		if !emailRegex.MatchString(v.Email) {
			return fmt.Errorf("invalid family viewer email: %s", v.Email)
		}
	}

	return s.repo.UpdateFamilyViewers(ctx, objID, viewers)
}
