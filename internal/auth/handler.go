package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/transport"
	"github.com/frahmantamala/college-erp/pkg/logger"
)

type ctxKey string

// ContextClaimsKey carries the validated session claims through the request.
const ContextClaimsKey ctxKey = "sessionClaims"

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ContextClaimsKey).(*Claims)
	return claims, ok
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "login failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var dto VerifyOTPDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.VerifyLoginOTP(r.Context(), dto, remoteIP(r))
	if err != nil {
		h.writeServiceError(w, err, "otp verification failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var dto ResetRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.RequestPasswordReset(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "password reset request failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var dto VerifyOTPDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.VerifyResetOTP(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "reset otp verification failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.CompleteReset(r.Context(), dto); err != nil {
		h.writeServiceError(w, err, "password reset failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password reset successful",
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.writeServiceError(w, err, "token refresh failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if _, err := h.Service.ValidateAccessToken(token); err != nil {
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware validates the bearer token and stores the claims, including
// the permission map snapshot, in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextClaimsKey, claims)
		ctx = internal.ContextWithActor(ctx, internal.Actor{
			UserID:   claims.UserID,
			Username: claims.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on a module/action pair from the designation
// permission map. Superusers pass unconditionally.
func (h *Handler) RequirePermission(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				h.WriteError(w, http.StatusUnauthorized, "missing session")
				return
			}

			if !claims.IsSuperuser && !claims.Permissions.Allows(module, action) {
				h.Logger.Warn("access denied: insufficient permissions",
					"user_id", claims.UserID,
					"module", module,
					"action", action)
				h.WriteError(w, http.StatusForbidden, "Forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.Logger.Warn(logMessage, "code", appErr.Code, "error", appErr.Message)
		status, body := appErr.ToHTTPResponse()
		h.WriteJSON(w, status, body)
		return
	}
	if _, ok := err.(ValidationError); ok {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Logger.Error(logMessage, "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
