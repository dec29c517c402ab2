package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dberezin/bank-core/internal/config"
	"github.com/dberezin/bank-core/internal/models"
	"github.com/dberezin/bank-core/internal/repository"
	"github.com/dberezin/bank-core/internal/utils"
)

// Notifier delivers best-effort movement notifications. Delivery failures
// are logged, never surfaced to the caller.
type Notifier interface {
	SendMovementNotification(to, name, accountNumber, kind string, amount, balance decimal.Decimal) error
}

// Service handles business logic
type Service struct {
	store    repository.Store
	log      *logrus.Logger
	config   *config.Config
	notifier Notifier
}

// NewService initializes a new service. notifier may be nil.
func NewService(store repository.Store, log *logrus.Logger, cfg *config.Config, notifier Notifier) *Service {
	return &Service{store: store, log: log, config: cfg, notifier: notifier}
}

// userIDFromContext extracts the authenticated user id placed in the request
// context by the auth middleware. The service trusts this value.
func (s *Service) userIDFromContext(ctx context.Context) (int64, error) {
	userIDStr, ok := ctx.Value("userID").(string)
	if !ok || userIDStr == "" {
		return 0, fmt.Errorf("user ID not found in context")
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %w", err)
	}
	return userID, nil
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
	SSN         string `json:"ssn"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)
	ssnRe   = regexp.MustCompile(`^\d{9}$`)
	zipRe   = regexp.MustCompile(`^\d{5}$`)
)

const minSignupAge = 18

func validateRegisterInput(in *RegisterInput) error {
	switch {
	case !emailRe.MatchString(in.Email):
		return fmt.Errorf("%w: invalid email address", models.ErrValidation)
	case !validPassword(in.Password):
		return fmt.Errorf("%w: password must be at least 8 characters and include uppercase, lowercase, number, and special character", models.ErrValidation)
	case in.FirstName == "" || in.LastName == "":
		return fmt.Errorf("%w: first and last name are required", models.ErrValidation)
	case !phoneRe.MatchString(in.PhoneNumber):
		return fmt.Errorf("%w: invalid phone number", models.ErrValidation)
	case !ssnRe.MatchString(in.SSN):
		return fmt.Errorf("%w: invalid SSN format", models.ErrValidation)
	case in.Address == "" || in.City == "":
		return fmt.Errorf("%w: address and city are required", models.ErrValidation)
	case len(in.State) != 2:
		return fmt.Errorf("%w: state must be a 2-letter code", models.ErrValidation)
	case !zipRe.MatchString(in.ZipCode):
		return fmt.Errorf("%w: invalid zip code", models.ErrValidation)
	}

	if dob, err := time.Parse("2006-01-02", in.DateOfBirth); err != nil {
		return fmt.Errorf("%w: invalid date of birth", models.ErrValidation)
	} else if dob.AddDate(minSignupAge, 0, 0).After(time.Now()) {
		return fmt.Errorf("%w: must be at least %d years old", models.ErrValidation, minSignupAge)
	}
	return nil
}

func validPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, c := range p {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// Register creates a new user with hashed password and encrypted SSN
func (s *Service) Register(in *RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegisterInput(in); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := hex.DecodeString(s.config.SSNEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid SSN encryption key: %w", err)
	}
	encryptedSSN, err := utils.EncryptSSN(in.SSN, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt SSN: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		DateOfBirth:  in.DateOfBirth,
		SSN:          encryptedSSN,
		Address:      in.Address,
		City:         in.City,
		State:        strings.ToUpper(in.State),
		ZipCode:      in.ZipCode,
	}

	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}
