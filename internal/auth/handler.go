package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"classquiz/internal/models"
	"classquiz/pkg/httpx"
)

var validate = validator.New()

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type RegisterRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     models.Role `json:"role" validate:"required,oneof=teacher student"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	user, err := h.service.Register(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if models.IsKind(err, models.KindInternal) {
			h.logger.Error("register failed", zap.Error(err))
		}
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, user)
}

type UpdateProfileRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	user, err := h.service.Profile(identity.UserID)
	if err != nil {
		if models.IsKind(err, models.KindInternal) {
			h.logger.Error("load profile failed", zap.Error(err))
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	user, err := h.service.UpdateProfile(identity.UserID, req.Name, req.Password)
	if err != nil {
		if models.IsKind(err, models.KindInternal) {
			h.logger.Error("update profile failed", zap.Error(err))
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	token, user, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if models.IsKind(err, models.KindInternal) {
			h.logger.Error("login failed", zap.Error(err))
		}
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
