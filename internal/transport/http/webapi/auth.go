package webapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vetrina-server-go/internal/domain/auth"
	platformerrors "vetrina-server-go/internal/platform/errors"
	"vetrina-server-go/internal/platform/logging"
)

// AuthHandler exposes the login/logout/verify endpoints.
type AuthHandler struct {
	gate   *auth.Gate
	logger *logging.Logger
}

func NewAuthHandler(gate *auth.Gate, logger *logging.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, logger: logger}
}

type loginRequest struct {
	Password string `json:"password"`
	TotpCode string `json:"totp_code"`
}

// Login exchanges password+TOTP for a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "malformed login request")
		return
	}

	issued, err := h.gate.Login(c.Request.Context(), req.Password, req.TotpCode, c.ClientIP())
	if err != nil {
		var loginErr *auth.LoginError
		if errors.As(err, &loginErr) {
			if loginErr.Reason == auth.ReasonLocked {
				c.JSON(http.StatusTooManyRequests, APIResponse{
					Success: false,
					Message: loginErr.Reason,
					Code:    http.StatusTooManyRequests,
					Data: gin.H{
						"retry_after_sec": int(loginErr.RetryAfter.Seconds()),
					},
				})
				return
			}
			c.JSON(http.StatusUnauthorized, APIResponse{
				Success: false,
				Message: loginErr.Reason,
				Code:    http.StatusUnauthorized,
				Data: gin.H{
					"attempts_remaining": loginErr.AttemptsRemaining,
				},
			})
			return
		}
		if platformerrors.IsKind(err, platformerrors.KindConfig) {
			RespondError(c, http.StatusInternalServerError, "server_error")
			return
		}
		h.logger.Error("login failed: %v", err)
		RespondError(c, http.StatusInternalServerError, "server_error")
		return
	}

	RespondSuccess(c, http.StatusOK, gin.H{
		"token":      issued.Token,
		"expires_at": issued.ExpiresAt,
	})
}

// Logout invalidates the presented session. Always 200: an unknown token is
// already logged out.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := BearerToken(c)
	if token != "" {
		if err := h.gate.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout: %v", err)
		}
	}
	RespondSuccess(c, http.StatusOK, gin.H{"logged_out": true})
}

// Verify reports whether the presented token is currently valid.
func (h *AuthHandler) Verify(c *gin.Context) {
	valid := h.gate.Authorize(c.Request.Context(), BearerToken(c))
	RespondSuccess(c, http.StatusOK, gin.H{"valid": valid})
}
