package auth

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("Auth Service", func() {
	var (
		service  *Service
		repo     *mockRepository
		notifier *mockNotifier
		tokens   *JWTTokenGenerator
		manager  PasswordManager
		user     *userDatamodel.User
		ctx      context.Context
	)

	const rawPassword = "Correct!horse1"

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		manager = NewPasswordManager(bcrypt.MinCost, 5)

		hash, err := manager.Hash(rawPassword)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		user = &userDatamodel.User{
			UserID:       "EM2023T001",
			Username:     "EM2023T001",
			Email:        "john.doe@college.edu",
			PasswordHash: hash,
			FirstName:    "John",
			LastName:     "Doe",
			IsActive:     true,
			MaxOTPTry:    userDatamodel.DefaultMaxOTPTry,
			Designation: &userDatamodel.Designation{
				DesignationID: 1,
				Name:          "Teacher",
				Code:          "TEACHER",
				Permissions:   userDatamodel.PermissionMap{"users": {"read": true}},
			},
		}

		repo = newMockRepository(user)
		notifier = &mockNotifier{}
		tokens = NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = NewService(repo, notifier, tokens, NewOTPEngine(3*time.Minute), manager, nil, logger)
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("rejects an empty payload", func() {
			// When
			_, err := service.Login(ctx, LoginDTO{})

			// Then
			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})

		ginkgo.It("reports not found for an unknown identifier", func() {
			// When
			_, err := service.Login(ctx, LoginDTO{UserID: "EM2023T999", Password: rawPassword})

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))
		})

		ginkgo.It("rejects an inactive account before checking the password", func() {
			// Given
			user.IsActive = false

			// When
			_, err := service.Login(ctx, LoginDTO{UserID: user.UserID, Password: rawPassword})

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAccountInactive))
			gomega.Expect(notifier.sent).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects a locked account even with the right password", func() {
			// Given
			user.PermanentLock = true

			// When
			_, err := service.Login(ctx, LoginDTO{UserID: user.UserID, Password: rawPassword})

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAccountLocked))
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Message).To(gomega.ContainSubstring("contact administrator"))
		})

		ginkgo.It("increments the failure counter on a wrong password", func() {
			// When
			_, err := service.Login(ctx, LoginDTO{UserID: user.UserID, Password: "wrong"})

			// Then the counter survives the failed call
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Message).To(gomega.Equal("Invalid credentials. 2 attempts remaining before next lockout."))
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(1))
		})

		ginkgo.It("issues an OTP challenge on a correct password", func() {
			// Given an earlier failure that should clear
			user.FailedLoginAttempts = 2
			now := time.Now()
			user.LastFailedLogin = &now

			// When
			result, err := service.Login(ctx, LoginDTO{UserID: "em2023t001", Password: rawPassword})

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.UserID).To(gomega.Equal("EM2023T001"))
			gomega.Expect(result.MaskedEmail).To(gomega.Equal("joh*****@college.edu"))
			gomega.Expect(result.OTPSent).To(gomega.BeTrue())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(0))

			gomega.Expect(notifier.sent).To(gomega.HaveLen(1))
			gomega.Expect(notifier.sent[0].To).To(gomega.Equal(user.Email))
			gomega.Expect(notifier.sent[0].Subject).To(gomega.Equal("Login Verification"))
			gomega.Expect(user.OTPCode).NotTo(gomega.BeNil())
			gomega.Expect(notifier.sent[0].Body).To(gomega.ContainSubstring(*user.OTPCode))
		})

		ginkgo.It("invalidates the OTP when delivery fails", func() {
			// Given
			notifier.fail = true

			// When
			_, err := service.Login(ctx, LoginDTO{UserID: user.UserID, Password: rawPassword})

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotificationFailed))
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("VerifyLoginOTP", func() {
		var code string

		ginkgo.BeforeEach(func() {
			_, err := service.Login(ctx, LoginDTO{UserID: user.UserID, Password: rawPassword})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			code = *user.OTPCode
		})

		ginkgo.It("rejects a wrong code and counts the attempt", func() {
			// Given
			wrong := "000000"
			if wrong == code {
				wrong = "000001"
			}

			// When
			_, err := service.VerifyLoginOTP(ctx, VerifyOTPDTO{UserID: user.UserID, OTP: wrong}, "10.0.0.5")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOTPInvalid))
			gomega.Expect(user.OTPAttempts).To(gomega.Equal(1))
		})

		ginkgo.It("issues a session and stamps the login on the right code", func() {
			// When
			result, err := service.VerifyLoginOTP(ctx, VerifyOTPDTO{UserID: user.UserID, OTP: code}, "10.0.0.5")

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.User.UserID).To(gomega.Equal(user.UserID))
			gomega.Expect(result.User.Designation).NotTo(gomega.BeNil())
			gomega.Expect(result.User.Designation.Code).To(gomega.Equal("TEACHER"))

			claims, err := tokens.ValidateAccessToken(result.Tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(user.UserID))
			gomega.Expect(claims.Permissions.Allows("users", "read")).To(gomega.BeTrue())

			gomega.Expect(user.LastLogin).NotTo(gomega.BeNil())
			gomega.Expect(user.LastLoginIP).NotTo(gomega.BeNil())
			gomega.Expect(*user.LastLoginIP).To(gomega.Equal("10.0.0.5"))
			gomega.Expect(user.OTPCode).To(gomega.BeNil())
		})

		ginkgo.It("refuses a second use of a consumed code", func() {
			// Given
			_, err := service.VerifyLoginOTP(ctx, VerifyOTPDTO{UserID: user.UserID, OTP: code}, "10.0.0.5")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			_, err = service.VerifyLoginOTP(ctx, VerifyOTPDTO{UserID: user.UserID, OTP: code}, "10.0.0.5")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrOTPMissing))
		})
	})

	ginkgo.Describe("Password reset", func() {
		ginkgo.It("issues a reset challenge without a password", func() {
			// When
			result, err := service.RequestPasswordReset(ctx, ResetRequestDTO{UserID: user.UserID})

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.OTPSent).To(gomega.BeTrue())
			gomega.Expect(notifier.sent).To(gomega.HaveLen(1))
			gomega.Expect(notifier.sent[0].Subject).To(gomega.Equal("Password Reset OTP"))
		})

		ginkgo.It("verifies the reset code without consuming it", func() {
			// Given
			_, err := service.RequestPasswordReset(ctx, ResetRequestDTO{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			code := *user.OTPCode

			// When
			result, err := service.VerifyResetOTP(ctx, VerifyOTPDTO{UserID: user.UserID, OTP: code})

			// Then the same code stays live for the final step
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.Verified).To(gomega.BeTrue())
			gomega.Expect(result.Message).To(gomega.Equal("OTP verified successfully"))
			gomega.Expect(user.OTPCode).NotTo(gomega.BeNil())
		})

		ginkgo.It("keeps the OTP intact when the new password is a reuse", func() {
			// Given
			_, err := service.RequestPasswordReset(ctx, ResetRequestDTO{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			code := *user.OTPCode

			// When
			err = service.CompleteReset(ctx, ResetPasswordDTO{
				UserID: user.UserID, OTP: code, NewPassword: rawPassword,
			})

			// Then the user can retry with a fresh password on the same code
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPasswordReuse))
			gomega.Expect(user.OTPCode).NotTo(gomega.BeNil())
			gomega.Expect(user.OTPAttempts).To(gomega.Equal(0))
		})

		ginkgo.It("rotates the password and consumes the code", func() {
			// Given
			_, err := service.RequestPasswordReset(ctx, ResetRequestDTO{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			code := *user.OTPCode
			user.FailedLoginAttempts = 2

			// When
			err = service.CompleteReset(ctx, ResetPasswordDTO{
				UserID: user.UserID, OTP: code, NewPassword: "Brand!new2pass",
			})

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(manager.Compare(user.PasswordHash, "Brand!new2pass")).To(gomega.BeTrue())
			gomega.Expect(user.FailedLoginAttempts).To(gomega.Equal(0))
			gomega.Expect(user.OTPVerified).To(gomega.BeFalse())
			gomega.Expect(user.OTPCode).To(gomega.BeNil())

			gomega.Expect(repo.historyEntries).To(gomega.HaveLen(1))
			gomega.Expect(repo.historyEntries[0].Action).To(gomega.Equal("UPDATE"))
			gomega.Expect(repo.historyEntries[0].NewData).To(gomega.HaveKeyWithValue("password_changed", true))
		})

		ginkgo.It("rejects a short replacement password", func() {
			// When
			err := service.CompleteReset(ctx, ResetPasswordDTO{
				UserID: user.UserID, OTP: "123456", NewPassword: "short",
			})

			// Then
			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("rotates the token pair for an active user", func() {
			// Given
			refresh, err := tokens.GenerateRefreshToken(SessionClaims{UserID: user.UserID, Username: user.Username})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			pair, err := service.RefreshTokens(refresh)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			claims, err := tokens.ValidateAccessToken(pair.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(user.UserID))
		})

		ginkgo.It("rejects a refresh for a deactivated user", func() {
			// Given
			refresh, err := tokens.GenerateRefreshToken(SessionClaims{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.IsActive = false

			// When
			_, err = service.RefreshTokens(refresh)

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAccountInactive))
		})

		ginkgo.It("rejects garbage tokens", func() {
			// When
			_, err := service.RefreshTokens("not-a-token")

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("accepts its own access tokens and rejects refresh tokens", func() {
			// Given
			access, err := tokens.GenerateAccessToken(SessionClaims{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			refresh, err := tokens.GenerateRefreshToken(SessionClaims{UserID: user.UserID})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// Then the secrets are not interchangeable
			_, err = service.ValidateAccessToken(access)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = service.ValidateAccessToken(refresh)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})
