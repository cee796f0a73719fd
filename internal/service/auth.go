package service

// AuthService is the session manager and the user lifecycle:
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService (session tokens)
//	                          ↘ PasswordService (bcrypt)
//	                          ↘ notify.Mailer (welcome mail)
//
// A session has two states. Anonymous is "no principal"; Authenticated is a
// signed token for a user id that still exists. Login moves to
// Authenticated, Logout back to Anonymous, and Resolve maps a token from a
// cookie to one of the two without ever failing the request.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/notify"
	"github.com/sakif/task-manager/internal/repository"
)

const (
	MaxUsernameLength = 50
	MaxEmailLength    = 254

	// DefaultMailTimeout bounds a single background welcome mail.
	DefaultMailTimeout = 10 * time.Second
)

// Session is the result of a successful login: who logged in and the token
// to put in their session cookie.
type Session struct {
	User    *model.User
	Token   string
	Expires time.Duration
}

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    notify.Mailer
	logger    *slog.Logger

	mailTimeout time.Duration
	pending     sync.WaitGroup
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer notify.Mailer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		mailer:      mailer,
		logger:      logger,
		mailTimeout: DefaultMailTimeout,
	}
}

// Register creates an account. Username and e-mail must both be unused;
// each clash is reported as its own Conflict so the form can point at the
// right field. The password is stored only as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	if err := s.ensureUnused(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", username, err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	s.sendWelcome(user)
	return user, nil
}

// Login checks an e-mail and password and issues a session token.
//
// An unknown e-mail and a wrong password give the same InvalidCredentials
// error, so the login form does not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("looking up user for login: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored credential unreadable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("login failed",
			slog.Int64("userID", user.ID),
			slog.String("reason", "wrong password"),
		)
		return nil, apperror.InvalidCredentials()
	}

	return s.issue(user)
}

// LoginWithGitHub signs in the account whose e-mail matches the GitHub
// user's, creating it on first use. New accounts take the GitHub login as
// their username (suffixed with the GitHub id if that is taken) and a random
// password, so they can only be reached through GitHub.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*Session, error) {
	if ghUser == nil || ghUser.Email == "" {
		return nil, apperror.ValidationFailed("email", "GitHub account has no usable e-mail")
	}

	user, err := s.users.GetByEmail(ctx, ghUser.Email)
	switch {
	case err == nil:
		s.logger.Info("user authenticated via GitHub",
			slog.Int64("userID", user.ID),
			slog.String("login", ghUser.Login),
		)
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("looking up GitHub user %q: %w", ghUser.Login, err)
	}

	username := ghUser.Login
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		username = ghUser.Login + "-" + strconv.FormatInt(ghUser.ID, 10)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username %q: %w", username, err)
	}

	hash, err := s.passwords.HashRandom()
	if err != nil {
		return nil, err
	}

	user = &model.User{Username: username, Email: ghUser.Email, PasswordHash: hash}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	s.sendWelcome(user)
	return s.issue(user)
}

// Logout ends the session. Tokens are stateless, so the real work is the
// handler expiring the cookie; this only records the event. Calling it for
// an anonymous request is fine.
func (s *AuthService) Logout(_ context.Context, principal *model.User) {
	if principal == nil {
		return
	}
	s.logger.Info("user logged out", slog.Int64("userID", principal.ID))
}

// Resolve returns the user behind a session token, or nil for anonymous.
// Bad signatures, expired tokens and deleted users all resolve to nil.
func (s *AuthService) Resolve(ctx context.Context, token string) *model.User {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("session rejected", slog.String("error", err.Error()))
		return nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Debug("session user not loadable",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// Wait blocks until queued welcome mails have been handed to the mailer.
// The server calls it during shutdown.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

func (s *AuthService) issue(user *model.User) (*Session, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session for user %d: %w", user.ID, err)
	}
	return &Session{User: user, Token: token, Expires: s.tokens.TTL()}, nil
}

// ensureUnused checks both unique fields before insert. The store's UNIQUE
// constraints still back this up when two registrations race.
func (s *AuthService) ensureUnused(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return apperror.DuplicateUsername(username)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking username %q: %w", username, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperror.DuplicateEmail(email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking email: %w", err)
	}
	return nil
}

func (s *AuthService) createUser(ctx context.Context, user *model.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return err
		}
		s.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("creating user %q: %w", user.Username, err)
	}
	return nil
}

// sendWelcome mails the new user in the background. The request does not
// wait for the relay, and a failed send is only logged.
func (s *AuthService) sendWelcome(user *model.User) {
	msg := notify.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "Welcome to Task Manager",
		Body: fmt.Sprintf("Hi %s,\n\nYour account is ready. Log in to start adding tasks.\n",
			user.Username),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.mailTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn("welcome mail failed",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func validateRegistration(username, email, password string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}

	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email", "email is too long")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email address is not valid")
	}

	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}
