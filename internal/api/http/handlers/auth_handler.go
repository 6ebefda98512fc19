package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/vibescript/builder/internal/api/dto"
	"github.com/vibescript/builder/internal/auth"
	"github.com/vibescript/builder/internal/config"
	"github.com/vibescript/builder/internal/domain"
	"github.com/vibescript/builder/internal/service"
	apperrors "github.com/vibescript/builder/pkg/util"
)

// resendMessage is returned for every resend request. Existing and unknown
// addresses must produce byte-identical responses.
const resendMessage = "If an account exists, a confirmation link has been sent."

// AuthHandler exposes the signup, sign-in, verification, and session
// endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	session config.SessionConfig
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService, session config.SessionConfig) *AuthHandler {
	return &AuthHandler{auth: authService, session: session}
}

// SignUp handles POST /signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Confirm == "" {
		return apperrors.NewValidationError("email, password, confirm required", nil)
	}

	if err := h.auth.SignUp(c.UserContext(), req.Email, req.Password, req.Confirm); err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			return apperrors.NewValidationError("passwords do not match", nil)
		case errors.Is(err, service.ErrEmailTaken):
			return apperrors.NewConflict("email already in use", nil)
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"message": "Check your email for a confirmation link.",
	})
}

// SignIn handles POST /signin. On success it sets the session cookie and
// redirects to the protected landing surface. An unverified account is sent
// back to the resend flow without a cookie.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnverified):
			return c.Redirect("/resend", fiber.StatusFound)
		case errors.Is(err, service.ErrInvalidCredentials):
			return apperrors.NewUnauthorized("invalid email or password")
		default:
			return err
		}
	}

	auth.SetSessionCookie(c, h.session.CookieName, token, h.session.CookieTTL())
	return c.Redirect("/dashboard", fiber.StatusFound)
}

// SignInPage handles GET /signin. The HTML shell lives in the static front;
// this returns the state the page renders from, including any redirect
// message carried in the query string.
func (h *AuthHandler) SignInPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "signin", "message": c.Query("msg")})
}

// ResendPage handles GET /resend.
func (h *AuthHandler) ResendPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "resend"})
}

// SignOut handles GET /signout: clears the cookie and returns to sign-in.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c, h.session.CookieName)
	return c.Redirect(h.session.LoginPath, fiber.StatusFound)
}

// Resend handles POST /resend.
func (h *AuthHandler) Resend(c *fiber.Ctx) error {
	var req dto.ResendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	h.auth.ResendVerification(c.UserContext(), req.Email)
	return c.JSON(fiber.Map{"message": resendMessage})
}

// Verify handles GET /verify?token=...: consumes the one-time token, marks
// the account verified, and starts a session.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, err := h.auth.ConsumeVerification(c.UserContext(), c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			return redirectWithMessage(c, h.session.LoginPath, "This verification link is invalid or has expired.")
		case errors.Is(err, service.ErrAccountMissing):
			return redirectWithMessage(c, h.session.LoginPath, "Account not found.")
		default:
			return err
		}
	}

	auth.SetSessionCookie(c, h.session.CookieName, token, h.session.CookieTTL())
	return c.Redirect("/dashboard", fiber.StatusFound)
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}
	return c.JSON(fiber.Map{
		"email": session.Email,
		"admin": session.Admin,
		"tier":  session.Tier,
		"iat":   session.IssuedAt,
	})
}

// Dashboard handles GET /dashboard. Rendering lives elsewhere; this returns
// the session view the page is built from.
func (h *AuthHandler) Dashboard(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}
	return c.JSON(fiber.Map{
		"email": session.Email,
		"tier":  session.Tier,
	})
}

// Upgrade handles POST /api/upgrade?tier=. Admin-only, session-scoped.
func (h *AuthHandler) Upgrade(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}

	token, err := h.auth.UpgradeTier(session, domain.Tier(c.Query("tier")))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTier):
			return apperrors.NewValidationError("invalid tier", nil)
		case errors.Is(err, service.ErrAdminRequired):
			return apperrors.NewForbidden("admin required")
		default:
			return err
		}
	}

	auth.SetSessionCookie(c, h.session.CookieName, token, h.session.CookieTTL())
	return c.JSON(fiber.Map{"ok": true, "tier": c.Query("tier")})
}

// AccessLink handles POST /api/admin/access-link: mints a one-shot sign-in
// URL for the given account.
func (h *AuthHandler) AccessLink(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}

	var req dto.AccessLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	link, err := h.auth.IssueAccessLink(c.UserContext(), session, req.Email, req.Target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminRequired):
			return apperrors.NewForbidden("admin required")
		case errors.Is(err, service.ErrAccountMissing):
			return apperrors.NewNotFound("account", nil)
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{"url": link})
}

func redirectWithMessage(c *fiber.Ctx, path, msg string) error {
	return c.Redirect(path+"?msg="+url.QueryEscape(msg), fiber.StatusFound)
}
