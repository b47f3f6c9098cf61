package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/platform/id"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/password"
	"github.com/sommlab/ai.exchange/internal/services/exchange/render"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
	"github.com/sommlab/ai.exchange/internal/services/exchange/token"
)

// RegisterInput is the payload for a new account.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Disciplines []string
}

// RegisterOutput confirms a pending registration.
type RegisterOutput struct {
	Email   string
	Message string
}

// Session is an authenticated user with issued tokens.
type Session struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

// Register creates a pending account and emails a verification code.
// The first registered user becomes an admin. Users from allowed
// domains or on the whitelist are approved automatically; everyone
// else is rejected.
func (s *Service) Register(ctx context.Context, input RegisterInput) (RegisterOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return RegisterOutput{}, apperrors.E(apperrors.KindInvalidInput, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return RegisterOutput{}, apperrors.E(apperrors.KindInvalidInput, "password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return RegisterOutput{}, apperrors.E(apperrors.KindInvalidInput, "email already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return RegisterOutput{}, apperrors.Wrap(apperrors.KindUnavailable, "check existing user", err)
	}

	if !s.accessAllowed(ctx, email) {
		return RegisterOutput{}, apperrors.E(apperrors.KindForbidden, fmt.Sprintf(
			"access denied, allowed domains: %s, contact an admin for access",
			strings.Join(s.allowedDomains(ctx), ", "),
		))
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return RegisterOutput{}, apperrors.Wrap(apperrors.KindUnavailable, "count users", err)
	}
	role := domain.RoleStaff
	if count == 0 {
		role = domain.RoleAdmin
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return RegisterOutput{}, apperrors.Wrap(apperrors.KindUnknown, "hash password", err)
	}
	userID, err := id.NewID()
	if err != nil {
		return RegisterOutput{}, apperrors.Wrap(apperrors.KindUnknown, "generate user id", err)
	}

	user := domain.User{
		ID:             userID,
		Email:          email,
		HashedPassword: hashed,
		FullName:       strings.TrimSpace(input.FullName),
		Role:           role,
		IsActive:       true,
		IsVerified:     false,
		IsApproved:     true,
		Disciplines:    input.Disciplines,
		Prefs:          domain.DefaultNotificationPrefs(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return RegisterOutput{}, apperrors.E(apperrors.KindInvalidInput, "email already registered")
		}
		return RegisterOutput{}, apperrors.Wrap(apperrors.KindUnavailable, "create user", err)
	}

	if err := s.sendVerificationCode(ctx, user); err != nil {
		log.Printf("send verification email for %s: %v", user.Email, err)
	}

	return RegisterOutput{
		Email:   user.Email,
		Message: "Registration successful. Please check your email for verification code.",
	}, nil
}

// accessAllowed checks the effective whitelist and domain allowlist, so
// admin overrides stored at runtime gate the very next registration.
func (s *Service) accessAllowed(ctx context.Context, email string) bool {
	for _, allowed := range s.emailWhitelist(ctx) {
		if email == allowed {
			return true
		}
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domainPart := email[at+1:]
	for _, allowed := range s.allowedDomains(ctx) {
		if domainPart == allowed {
			return true
		}
	}
	return false
}

func (s *Service) sendVerificationCode(ctx context.Context, user domain.User) error {
	code, err := token.NewCode()
	if err != nil {
		return err
	}
	verificationID, err := id.NewID()
	if err != nil {
		return err
	}
	verification := domain.EmailVerification{
		ID:        verificationID,
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(verificationTTL),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateEmailVerification(ctx, verification); err != nil {
		return err
	}
	email := render.Verification(s.loc, user, code)
	return s.mail.Send(ctx, user.Email, email.Subject, email.Body)
}

// VerifyEmail redeems a verification code and returns a session.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, apperrors.E(apperrors.KindInvalidInput, "user not found with this email")
		}
		return Session{}, apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}

	verification, err := s.store.GetEmailVerification(ctx, user.ID, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, apperrors.E(apperrors.KindInvalidInput, "invalid verification code")
		}
		return Session{}, apperrors.Wrap(apperrors.KindUnavailable, "load verification", err)
	}
	if verification.Used {
		return Session{}, apperrors.E(apperrors.KindInvalidInput, "verification code has already been used")
	}
	if verification.Expired(s.now()) {
		return Session{}, apperrors.E(apperrors.KindInvalidInput, "verification code has expired")
	}

	user.IsVerified = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindUnavailable, "mark user verified", err)
	}
	if err := s.store.MarkEmailVerificationUsed(ctx, verification.ID); err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindUnavailable, "consume verification", err)
	}
	return s.newSession(ctx, user)
}

// Login authenticates with email and password. Credential failures stay
// deliberately vague; account-state failures are specific.
func (s *Service) Login(ctx context.Context, email, plaintext string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, apperrors.E(apperrors.KindUnauthorized, "invalid email or password")
		}
		return Session{}, apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}
	if !password.Verify(user.HashedPassword, plaintext) {
		return Session{}, apperrors.E(apperrors.KindUnauthorized, "invalid email or password")
	}
	if !user.IsActive {
		return Session{}, apperrors.E(apperrors.KindForbidden, "user account is deactivated")
	}
	if !user.IsVerified {
		return Session{}, apperrors.E(apperrors.KindForbidden, "user account is not verified, check your email for the verification code")
	}
	if !user.IsApproved {
		return Session{}, apperrors.E(apperrors.KindForbidden, "user account is pending approval by admin")
	}
	return s.newSession(ctx, user)
}

func (s *Service) newSession(ctx context.Context, user domain.User) (Session, error) {
	now := s.now()
	accessTTL, refreshTTL := s.tokenTTLs(ctx)
	access, err := s.tokens.IssueAccessFor(user.ID, now, accessTTL)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindUnknown, "issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshFor(user.ID, now, refreshTTL)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindUnknown, "issue refresh token", err)
	}
	return Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate resolves an access token to its active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (domain.User, error) {
	userID, tokenType, err := s.tokens.Parse(accessToken)
	if err != nil {
		return domain.User{}, apperrors.E(apperrors.KindUnauthorized, "invalid or expired token")
	}
	if tokenType != token.TypeAccess {
		return domain.User{}, apperrors.E(apperrors.KindUnauthorized, "access token required")
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, apperrors.E(apperrors.KindUnauthorized, "user no longer exists")
		}
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}
	if !user.IsActive {
		return domain.User{}, apperrors.E(apperrors.KindForbidden, "user account is deactivated")
	}
	if !user.IsApproved {
		return domain.User{}, apperrors.E(apperrors.KindForbidden, "user account is pending approval by admin")
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	userID, tokenType, err := s.tokens.Parse(refreshToken)
	if err != nil {
		return Session{}, apperrors.E(apperrors.KindUnauthorized, "invalid or expired token")
	}
	if tokenType != token.TypeRefresh {
		return Session{}, apperrors.E(apperrors.KindUnauthorized, "refresh token required")
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Session{}, apperrors.E(apperrors.KindUnauthorized, "user no longer exists")
	}
	if !user.IsActive || !user.IsApproved {
		return Session{}, apperrors.E(apperrors.KindForbidden, "user account is not available")
	}
	return s.newSession(ctx, user)
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	FullName    *string
	Disciplines *[]string
	Prefs       *domain.NotificationPrefs
}

// UpdateProfile applies the provided changes to the user's own profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, apperrors.E(apperrors.KindNotFound, "user not found")
		}
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Disciplines != nil {
		user.Disciplines = *input.Disciplines
	}
	if input.Prefs != nil {
		user.Prefs = *input.Prefs
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "update user", err)
	}
	return user, nil
}

// ForgotPassword sends a reset code when the account exists. The reply
// is identical either way so addresses cannot be probed.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	const generic = "If an account with this email exists, a password reset code has been sent to your email."

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return generic, nil
		}
		return "", apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}
	if !user.IsActive || !user.IsApproved {
		return generic, nil
	}

	code, err := token.NewCode()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnknown, "generate reset code", err)
	}
	resetID, err := id.NewID()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnknown, "generate reset id", err)
	}
	reset := domain.PasswordReset{
		ID:        resetID,
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(resetTTL),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return "", apperrors.Wrap(apperrors.KindUnavailable, "store reset code", err)
	}

	rendered := render.PasswordReset(s.loc, user, code)
	if err := s.mail.Send(ctx, user.Email, rendered.Subject, rendered.Body); err != nil {
		return "", apperrors.Wrap(apperrors.KindUnavailable, "send reset code", err)
	}
	return generic, nil
}

// ResetPassword redeems a reset code and installs the new password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	if len(newPassword) < 8 {
		return "", apperrors.E(apperrors.KindInvalidInput, "password must be at least 8 characters")
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", apperrors.E(apperrors.KindInvalidInput, "invalid or expired reset code")
	}
	reset, err := s.store.GetPasswordReset(ctx, user.ID, strings.TrimSpace(code))
	if err != nil {
		return "", apperrors.E(apperrors.KindInvalidInput, "invalid or expired reset code")
	}
	if !reset.Valid(s.now()) {
		return "", apperrors.E(apperrors.KindInvalidInput, "invalid or expired reset code")
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnknown, "hash password", err)
	}
	user.HashedPassword = hashed
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return "", apperrors.Wrap(apperrors.KindUnavailable, "update password", err)
	}
	if err := s.store.MarkPasswordResetUsed(ctx, reset.ID); err != nil {
		return "", apperrors.Wrap(apperrors.KindUnavailable, "consume reset code", err)
	}
	return "Password reset successfully. You can now log in with your new password.", nil
}
