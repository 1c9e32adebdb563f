package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-app/internal/metrics"
	"todo-app/internal/service"
)

const deleteConfirmation = "DELETE"

// AccountHandler sirve la pagina de ajustes: perfil, verificacion de email y
// eliminacion de la cuenta.
type AccountHandler struct {
	logger    *zap.Logger
	accounts  *service.AccountService
	users     *service.UserService
	collector *metrics.Collector
}

func NewAccountHandler(
	logger *zap.Logger,
	accounts *service.AccountService,
	users *service.UserService,
	collector *metrics.Collector,
) *AccountHandler {
	return &AccountHandler{
		logger:    logger,
		accounts:  accounts,
		users:     users,
		collector: collector,
	}
}

type notice struct {
	Kind string
	Text string
}

var settingsNotices = map[string]notice{
	"profile_updated":    {"success", "Profile updated."},
	"invalid_name":       {"error", "Please enter a name (up to 100 characters)."},
	"profile_failed":     {"error", "Failed to update profile."},
	"code_sent":          {"success", "Code sent! Check your inbox."},
	"rate_limited":       {"error", "Too many codes requested. Please wait a few minutes."},
	"email_unavailable":  {"error", "Failed to send verification email."},
	"send_failed":        {"error", "An unexpected error occurred."},
	"code_missing":       {"error", "Please enter the verification code."},
	"code_invalid":       {"error", "Invalid verification code."},
	"code_expired":       {"error", "The verification code has expired. Request a new one."},
	"code_not_requested": {"error", "Request a verification code first."},
	"email_verified":     {"success", "Your email is verified."},
	"verify_failed":      {"error", "An unexpected error occurred."},
	"delete_confirm":     {"error", "Please type DELETE to confirm."},
	"delete_failed":      {"error", "Failed to delete account."},
}

// Settings maneja GET /account/settings.
func (h *AccountHandler) Settings(c *gin.Context) {
	identity, _ := GetIdentity(c)
	data := gin.H{
		"Title":      "Settings",
		"Identity":   identity,
		"VerifyStep": c.Query("step") == "verify",
	}
	if n, ok := settingsNotices[c.Query("notice")]; ok {
		data["Notice"] = n
	}
	c.HTML(http.StatusOK, "settings.html", data)
}

// UpdateProfile maneja POST /account/profile. El nombre se cambia primero en
// el proveedor y luego se replica al registro local.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	identity, _ := GetIdentity(c)
	name := c.PostForm("name")

	account, err := h.accounts.UpdateUser(c.Request.Context(), identity.ID, name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidName) {
			redirectSettings(c, "invalid_name", "")
			return
		}
		h.logger.Error("update account failed", zap.Error(err), zap.String("user_id", identity.ID))
		redirectSettings(c, "profile_failed", "")
		return
	}
	if err := h.users.UpdateName(c.Request.Context(), identity.ID, account.DisplayName); err != nil {
		h.logger.Error("update user name failed", zap.Error(err), zap.String("user_id", identity.ID))
		redirectSettings(c, "profile_failed", "")
		return
	}
	redirectSettings(c, "profile_updated", "")
}

// SendVerification maneja POST /account/verify/send.
func (h *AccountHandler) SendVerification(c *gin.Context) {
	identity, _ := GetIdentity(c)
	err := h.accounts.SendVerificationOTP(c.Request.Context(), identity.Email)
	switch {
	case err == nil:
		h.recordAuth("otp_send", "ok")
		redirectSettings(c, "code_sent", "verify")
	case errors.Is(err, service.ErrRateLimited):
		h.recordAuth("otp_send", "rate_limited")
		redirectSettings(c, "rate_limited", "")
	case errors.Is(err, service.ErrEmailSendFailure):
		h.recordAuth("otp_send", "error")
		redirectSettings(c, "email_unavailable", "")
	default:
		h.recordAuth("otp_send", "error")
		h.logger.Error("send verification failed", zap.Error(err), zap.String("user_id", identity.ID))
		redirectSettings(c, "send_failed", "")
	}
}

// Verify maneja POST /account/verify.
func (h *AccountHandler) Verify(c *gin.Context) {
	identity, _ := GetIdentity(c)
	code := strings.TrimSpace(c.PostForm("code"))
	if code == "" {
		redirectSettings(c, "code_missing", "verify")
		return
	}

	_, err := h.accounts.VerifyEmail(c.Request.Context(), identity.Email, code)
	if err != nil {
		h.recordAuth("otp_verify", "error")
		switch {
		case errors.Is(err, service.ErrOTPInvalid):
			redirectSettings(c, "code_invalid", "verify")
		case errors.Is(err, service.ErrOTPExpired):
			redirectSettings(c, "code_expired", "")
		case errors.Is(err, service.ErrOTPNotRequested):
			redirectSettings(c, "code_not_requested", "")
		default:
			h.logger.Error("verify email failed", zap.Error(err), zap.String("user_id", identity.ID))
			redirectSettings(c, "verify_failed", "verify")
		}
		return
	}
	h.recordAuth("otp_verify", "ok")

	if err := h.users.MarkEmailVerified(c.Request.Context(), identity.ID); err != nil {
		h.logger.Error("mark user verified failed", zap.Error(err), zap.String("user_id", identity.ID))
	}
	redirectSettings(c, "email_verified", "")
}

// DeleteAccount maneja POST /account/delete. La cuenta del proveedor se
// elimina primero; el registro local y sus tareas solo si eso tuvo exito.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	identity, _ := GetIdentity(c)
	if c.PostForm("confirm") != deleteConfirmation {
		redirectSettings(c, "delete_confirm", "")
		return
	}

	if err := h.accounts.DeleteUser(c.Request.Context(), identity.ID); err != nil {
		h.recordAuth("delete_account", "error")
		h.logger.Error("delete account failed", zap.Error(err), zap.String("user_id", identity.ID))
		redirectSettings(c, "delete_failed", "")
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), identity.ID); err != nil {
		h.logger.Error("delete user record failed", zap.Error(err), zap.String("user_id", identity.ID))
	}

	h.recordAuth("delete_account", "ok")
	clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/auth/sign-up")
}

func (h *AccountHandler) recordAuth(event, result string) {
	if h.collector != nil {
		h.collector.RecordAuthEvent(event, result)
	}
}

func redirectSettings(c *gin.Context, code, step string) {
	q := url.Values{}
	q.Set("notice", code)
	if step != "" {
		q.Set("step", step)
	}
	c.Redirect(http.StatusSeeOther, "/account/settings?"+q.Encode())
}
