package accounts

import (
	"net/http"
	"time"

	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /auth. limiter puede ser nil (sin rate limiting).
func RegisterRoutes(r chi.Router, svc *Service, limiter middleware.Limiter) {
	r.Route("/auth", func(ar chi.Router) {
		ar.With(middleware.RateLimit(limiter, "register")).Post("/register", registerHandler(svc))
		ar.With(middleware.RateLimit(limiter, "login")).Post("/login", loginHandler(svc))
		ar.With(middleware.RateLimit(limiter, "forgot-password")).Post("/forgot-password", forgotPasswordHandler(svc))
		ar.Post("/refresh-token", refreshHandler(svc))
		ar.Post("/reset-password/{token}", resetPasswordHandler(svc))

		ar.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireRoles(auth.AnyRole))

			pr.Get("/me", meHandler(svc))
			pr.Put("/me", updateMeHandler(svc))
			pr.Post("/change-password", changePasswordHandler(svc))
		})
	})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Address  string `json:"address" validate:"omitempty,max=200"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

type updateMeRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address" validate:"omitempty,max=200"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionResponse struct {
	Account      accountResponse `json:"account"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type resetTokenResponse struct {
	ResetToken string `json:"resetToken"`
}

// registerHandler godoc
// @Summary Registrar cuenta
// @Description Crea una cuenta con rol `member` y devuelve tokens.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerRequest true "Datos de registro"
// @Success 201 {object} httpx.Envelope{data=sessionResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 409 {object} httpx.Envelope
// @Failure 429 {object} httpx.Envelope
// @Router /auth/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[registerRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		sess, err := svc.Register(r.Context(), RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusCreated, toSessionResponse(sess))
	}
}

// loginHandler godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} httpx.Envelope{data=sessionResponse}
// @Failure 401 {object} httpx.Envelope
// @Failure 429 {object} httpx.Envelope
// @Router /auth/login [post]
func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[loginRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toSessionResponse(sess))
	}
}

// refreshHandler godoc
// @Summary Renovar access token
// @Description El refresh token no se rota.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body refreshRequest true "Refresh token"
// @Success 200 {object} httpx.Envelope{data=accessTokenResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 401 {object} httpx.Envelope
// @Router /auth/refresh-token [post]
func refreshHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[refreshRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		access, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, accessTokenResponse{AccessToken: access})
	}
}

// meHandler godoc
// @Summary Cuenta actual
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httpx.Envelope{data=accountResponse}
// @Failure 401 {object} httpx.Envelope
// @Router /auth/me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		a, err := svc.GetByID(r.Context(), id.AccountID)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toAccountResponse(a))
	}
}

// updateMeHandler godoc
// @Summary Editar perfil
// @Description Solo nombre, teléfono y dirección. Email y rol no se editan.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body updateMeRequest true "Campos a modificar"
// @Success 200 {object} httpx.Envelope{data=accountResponse}
// @Failure 400 {object} httpx.Envelope
// @Failure 401 {object} httpx.Envelope
// @Router /auth/me [put]
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		req, err := httpx.Decode[updateMeRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		a, err := svc.UpdateProfile(r.Context(), id.AccountID, ProfileInput{
			Name:    req.Name,
			Phone:   req.Phone,
			Address: req.Address,
		})
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Data(w, http.StatusOK, toAccountResponse(a))
	}
}

// forgotPasswordHandler godoc
// @Summary Olvidé mi contraseña
// @Description Devuelve el token de reset directamente (no hay envío de email).
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body forgotPasswordRequest true "Email"
// @Success 200 {object} httpx.Envelope{data=resetTokenResponse}
// @Failure 404 {object} httpx.Envelope
// @Failure 429 {object} httpx.Envelope
// @Router /auth/forgot-password [post]
func forgotPasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[forgotPasswordRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		token, err := svc.ForgotPassword(r.Context(), req.Email)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "reset token generated", resetTokenResponse{ResetToken: token})
	}
}

// resetPasswordHandler godoc
// @Summary Resetear contraseña
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Token de reset"
// @Param payload body resetPasswordRequest true "Nueva contraseña"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Router /auth/reset-password/{token} [post]
func resetPasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httpx.Decode[resetPasswordRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		if err := svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "password reset", nil)
	}
}

// changePasswordHandler godoc
// @Summary Cambiar contraseña
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body changePasswordRequest true "Contraseña actual y nueva"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Failure 401 {object} httpx.Envelope
// @Router /auth/change-password [post]
func changePasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.GetIdentity(r.Context())

		req, err := httpx.Decode[changePasswordRequest](r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), id.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "password updated", nil)
	}
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Role:      a.Role,
		Name:      a.Name,
		Phone:     a.Phone,
		Address:   a.Address,
		CreatedAt: a.CreatedAt,
	}
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		Account:      toAccountResponse(s.Account),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}
