package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

const msgInvalidCredentials = "Invalid username or password."

// LoginPage renders the login form.
func (h *Handler) LoginPage(c *gin.Context) {
	render.Page(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": validation.LoginForm{}})
}

// Login authenticates the user and starts an authenticated session.
func (h *Handler) Login(c *gin.Context) {
	var form validation.LoginForm
	if !h.bind(c, &form) {
		return
	}

	user, err := h.Auth.Authenticate(c.Request.Context(), &form)
	form.Password = ""
	data := gin.H{"Title": "Log in", "Form": form}
	if err != nil {
		if errs, ok := render.AsValidation(err); ok {
			h.invalid(c, errs, "login.html", data)
			return
		}
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if render.WantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": msgInvalidCredentials})
				return
			}
			data["Errors"] = validation.Errors{{Message: msgInvalidCredentials}}
			render.Page(c, http.StatusUnauthorized, "login.html", data)
			return
		}
		h.fail(c, err)
		return
	}

	s, err := h.startSession(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	s.AddFlash(session.FlashSuccess, "Welcome back, "+user.Username+"!")
	redirect(c, s.PopReturnTo("/dashboard"), http.StatusOK, gin.H{"user": user})
}

// RegisterPage renders the registration form.
func (h *Handler) RegisterPage(c *gin.Context) {
	render.Page(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": validation.RegisterForm{}})
}

// Register creates an account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var form validation.RegisterForm
	if !h.bind(c, &form) {
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), &form)
	if err != nil {
		if errs, ok := render.AsValidation(err); ok {
			form.Password, form.ConfirmPassword = "", ""
			h.invalid(c, errs, "register.html", gin.H{"Title": "Register", "Form": form})
			return
		}
		h.fail(c, err)
		return
	}

	s, err := h.startSession(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	s.AddFlash(session.FlashSuccess, "Welcome, "+user.Username+"! Your account has been created.")
	redirect(c, "/dashboard", http.StatusCreated, gin.H{"user": user})
}

// Logout destroys the session.
func (h *Handler) Logout(c *gin.Context) {
	if s, ok := session.Get(c); ok {
		if err := h.Sessions.Destroy(c, s); err != nil {
			h.fail(c, err)
			return
		}
	}
	redirect(c, "/", http.StatusOK, nil)
}

// startSession attaches user to the current session under a fresh id.
func (h *Handler) startSession(c *gin.Context, user domain.User) (*session.Session, error) {
	s, ok := session.Get(c)
	if !ok {
		return nil, errors.New("session middleware not installed")
	}
	s.SetUser(user)
	if err := h.Sessions.Renew(c, s); err != nil {
		return nil, err
	}
	return s, nil
}
