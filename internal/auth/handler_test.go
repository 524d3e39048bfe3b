package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		handler  *Handler
		repo     *mockRepository
		notifier *mockNotifier
		tokens   *JWTTokenGenerator
		user     *userDatamodel.User
	)

	const rawPassword = "Correct!horse1"

	postJSON := func(target string, payload interface{}, handle http.HandlerFunc) *httptest.ResponseRecorder {
		body, err := json.Marshal(payload)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handle(w, req)
		return w
	}

	ginkgo.BeforeEach(func() {
		manager := NewPasswordManager(bcrypt.MinCost, 5)
		hash, err := manager.Hash(rawPassword)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		user = &userDatamodel.User{
			UserID:       "EM2023T001",
			Username:     "EM2023T001",
			Email:        "john.doe@college.edu",
			PasswordHash: hash,
			FirstName:    "John",
			IsActive:     true,
			MaxOTPTry:    userDatamodel.DefaultMaxOTPTry,
		}
		repo = newMockRepository(user)
		notifier = &mockNotifier{}
		tokens = NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := NewService(repo, notifier, tokens, NewOTPEngine(3*time.Minute), manager, nil, logger)
		handler = NewHandler(service)
	})

	ginkgo.Describe("POST /auth/login", func() {
		ginkgo.It("returns the OTP challenge with the masked email", func() {
			// When
			w := postJSON("/auth/login", LoginDTO{UserID: user.UserID, Password: rawPassword}, handler.Login)

			// Then
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			var result OTPChallengeResult
			gomega.Expect(json.NewDecoder(w.Body).Decode(&result)).To(gomega.Succeed())
			gomega.Expect(result.MaskedEmail).To(gomega.Equal("joh*****@college.edu"))
			gomega.Expect(result.OTPSent).To(gomega.BeTrue())
		})

		ginkgo.It("returns 401 with the error envelope on a wrong password", func() {
			// When
			w := postJSON("/auth/login", LoginDTO{UserID: user.UserID, Password: "wrong"}, handler.Login)

			// Then
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))

			var body internal.Response
			gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body.Error).NotTo(gomega.BeNil())
			gomega.Expect(body.Error.Code).To(gomega.Equal(internal.ErrCodeInvalidCredentials))
		})

		ginkgo.It("returns 400 on a malformed body", func() {
			// When
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{")))
			w := httptest.NewRecorder()
			handler.Login(w, req)

			// Then
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("POST /auth/verify-otp", func() {
		ginkgo.It("returns the session with tokens on the right code", func() {
			// Given
			w := postJSON("/auth/login", LoginDTO{UserID: user.UserID, Password: rawPassword}, handler.Login)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			code := *user.OTPCode

			// When
			w = postJSON("/auth/verify-otp", VerifyOTPDTO{UserID: user.UserID, OTP: code}, handler.VerifyLoginOTP)

			// Then
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			var result LoginSessionResult
			gomega.Expect(json.NewDecoder(w.Body).Decode(&result)).To(gomega.Succeed())
			gomega.Expect(result.Tokens.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(result.User.UserID).To(gomega.Equal(user.UserID))
		})

		ginkgo.It("returns 400 with the OTP error code on a wrong code", func() {
			// Given
			w := postJSON("/auth/login", LoginDTO{UserID: user.UserID, Password: rawPassword}, handler.Login)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			wrong := "000000"
			if wrong == *user.OTPCode {
				wrong = "000001"
			}

			// When
			w = postJSON("/auth/verify-otp", VerifyOTPDTO{UserID: user.UserID, OTP: wrong}, handler.VerifyLoginOTP)

			// Then
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))

			var body internal.Response
			gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body.Error.Code).To(gomega.Equal(internal.ErrCodeOTPInvalid))
		})
	})

	ginkgo.Describe("password reset endpoints", func() {
		ginkgo.It("walks the request, verify and complete steps", func() {
			// Given
			w := postJSON("/auth/password-reset/request", ResetRequestDTO{UserID: user.UserID}, handler.RequestPasswordReset)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			code := *user.OTPCode

			// When the code is verified
			w = postJSON("/auth/password-reset/verify-otp", VerifyOTPDTO{UserID: user.UserID, OTP: code}, handler.VerifyResetOTP)

			// Then it is still live for the final step
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			w = postJSON("/auth/password-reset/complete", ResetPasswordDTO{
				UserID: user.UserID, OTP: code, NewPassword: "Brand!new2pass",
			}, handler.CompleteReset)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			var body map[string]string
			gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body).To(gomega.HaveKeyWithValue("status", "success"))
		})
	})

	ginkgo.Describe("AuthMiddleware and RequirePermission", func() {
		var protected http.Handler

		ginkgo.BeforeEach(func() {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims, ok := ClaimsFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				w.Write([]byte(claims.UserID))
			})
			protected = handler.AuthMiddleware(handler.RequirePermission("users", "read")(next))
		})

		issueToken := func(permissions userDatamodel.PermissionMap, superuser bool) string {
			token, err := tokens.GenerateAccessToken(SessionClaims{
				UserID:      user.UserID,
				Username:    user.Username,
				IsSuperuser: superuser,
				Permissions: permissions,
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			return token
		}

		serve := func(authorization string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if authorization != "" {
				req.Header.Set("Authorization", authorization)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req.WithContext(context.Background()))
			return w
		}

		ginkgo.It("rejects requests without a token", func() {
			gomega.Expect(serve("").Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("rejects garbage tokens", func() {
			gomega.Expect(serve("Bearer not-a-token").Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("rejects a session without the required permission", func() {
			token := issueToken(userDatamodel.PermissionMap{"master": {"read": true}}, false)
			gomega.Expect(serve("Bearer " + token).Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("passes a session holding the permission", func() {
			token := issueToken(userDatamodel.PermissionMap{"users": {"read": true}}, false)

			w := serve("Bearer " + token)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(w.Body.String()).To(gomega.Equal(user.UserID))
		})

		ginkgo.It("lets superusers through regardless of the map", func() {
			token := issueToken(nil, true)
			gomega.Expect(serve("Bearer " + token).Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
