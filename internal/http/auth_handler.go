package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"todo-app/internal/metrics"
	"todo-app/internal/service"
)

// AuthHandler sirve el alta, el inicio y el cierre de sesion.
type AuthHandler struct {
	logger    *zap.Logger
	accounts  *service.AccountService
	tokens    *service.JWTService
	collector *metrics.Collector
	cookies   CookieConfig
}

func NewAuthHandler(
	logger *zap.Logger,
	accounts *service.AccountService,
	tokens *service.JWTService,
	collector *metrics.Collector,
	cookies CookieConfig,
) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		accounts:  accounts,
		tokens:    tokens,
		collector: collector,
		cookies:   cookies,
	}
}

type authForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Name     string `form:"name"`
}

// SignUpPage maneja GET /auth/sign-up.
func (h *AuthHandler) SignUpPage(c *gin.Context) {
	if _, ok := GetIdentity(c); ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "sign_up.html", gin.H{"Title": "Create account", "Email": "", "Name": ""})
}

// SignUp maneja POST /auth/sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var form authForm
	if err := c.ShouldBind(&form); err != nil {
		h.recordAuth("sign_up", "invalid")
		status, message := bindErrorResponse(err)
		h.renderAuthError(c, "sign_up.html", status, form, message)
		return
	}

	account, err := h.accounts.SignUp(c.Request.Context(), service.SignUpInput{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
	})
	if err != nil {
		h.recordAuth("sign_up", "error")
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			h.renderAuthError(c, "sign_up.html", http.StatusUnprocessableEntity, form, "Please enter a valid email address.")
		case errors.Is(err, service.ErrWeakPassword):
			h.renderAuthError(c, "sign_up.html", http.StatusUnprocessableEntity, form, "Password must be at least 8 characters.")
		case errors.Is(err, service.ErrInvalidName):
			h.renderAuthError(c, "sign_up.html", http.StatusUnprocessableEntity, form, "Name is too long.")
		case errors.Is(err, service.ErrEmailTaken):
			h.renderAuthError(c, "sign_up.html", http.StatusConflict, form, "An account with this email already exists.")
		default:
			h.logger.Error("sign up failed", zap.Error(err))
			h.renderAuthError(c, "sign_up.html", http.StatusInternalServerError, form, "Could not create your account. Please try again.")
		}
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), account)
	if err != nil {
		h.recordAuth("sign_up", "error")
		h.logger.Error("session issue failed", zap.Error(err))
		h.renderAuthError(c, "sign_up.html", http.StatusInternalServerError, form, "Your account was created but we could not sign you in.")
		return
	}

	h.recordAuth("sign_up", "ok")
	setSessionCookie(c, h.cookies, token.Token, token.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/")
}

// SignInPage maneja GET /auth/sign-in.
func (h *AuthHandler) SignInPage(c *gin.Context) {
	if _, ok := GetIdentity(c); ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "sign_in.html", gin.H{"Title": "Sign in", "Email": ""})
}

// SignIn maneja POST /auth/sign-in.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var form authForm
	if err := c.ShouldBind(&form); err != nil {
		h.recordAuth("sign_in", "invalid")
		status, message := bindErrorResponse(err)
		h.renderAuthError(c, "sign_in.html", status, form, message)
		return
	}

	account, err := h.accounts.SignIn(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.recordAuth("sign_in", "error")
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.renderAuthError(c, "sign_in.html", http.StatusUnauthorized, form, "Invalid email or password.")
		case errors.Is(err, service.ErrRateLimited):
			h.renderAuthError(c, "sign_in.html", http.StatusTooManyRequests, form, "Too many attempts. Please wait and try again.")
		default:
			h.logger.Error("sign in failed", zap.Error(err))
			h.renderAuthError(c, "sign_in.html", http.StatusInternalServerError, form, "Could not sign you in. Please try again.")
		}
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), account)
	if err != nil {
		h.recordAuth("sign_in", "error")
		h.logger.Error("session issue failed", zap.Error(err))
		h.renderAuthError(c, "sign_in.html", http.StatusInternalServerError, form, "Could not sign you in. Please try again.")
		return
	}

	h.recordAuth("sign_in", "ok")
	setSessionCookie(c, h.cookies, token.Token, token.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/")
}

// SignOut maneja POST /auth/sign-out. Siempre limpia la cookie.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := h.tokens.Revoke(c.Request.Context(), token); err != nil {
			h.recordAuth("sign_out", "error")
			h.logger.Warn("session revoke failed", zap.Error(err))
		} else {
			h.recordAuth("sign_out", "ok")
		}
	}
	clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, signInPath)
}

func (h *AuthHandler) renderAuthError(c *gin.Context, page string, status int, form authForm, message string) {
	title := "Sign in"
	if page == "sign_up.html" {
		title = "Create account"
	}
	c.HTML(status, page, gin.H{
		"Title": title,
		"Error": message,
		"Email": form.Email,
		"Name":  form.Name,
	})
}

// bindErrorResponse traduce los errores del validador a un mensaje por campo.
func bindErrorResponse(err error) (int, string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return http.StatusBadRequest, "Please fill in the form."
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return http.StatusUnprocessableEntity, "Please enter your email address."
	case fe.Field() == "Email":
		return http.StatusUnprocessableEntity, "Please enter a valid email address."
	case fe.Field() == "Password":
		return http.StatusUnprocessableEntity, "Please enter your password."
	default:
		return http.StatusUnprocessableEntity, "Please fill in the form."
	}
}

func (h *AuthHandler) recordAuth(event, result string) {
	if h.collector != nil {
		h.collector.RecordAuthEvent(event, result)
	}
}
