package quiz

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"classquiz/internal/auth"
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

func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, models.ErrValidation("invalid " + name)
	}
	return uint(id), nil
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	if models.IsKind(err, models.KindInternal) {
		h.logger.Error("quiz request failed", zap.Error(err))
	}
	httpx.Error(w, err)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var input QuizInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(input); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	quiz, err := h.service.Create(r.Context(), identity.UserID, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quiz)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	quizzes, err := h.service.ListMine(identity.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quizzes)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	quizID, err := pathID(r, "quizID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	quiz, err := h.service.Get(r.Context(), identity.UserID, quizID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quiz)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	quizID, err := pathID(r, "quizID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var input QuizInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(input); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	quiz, err := h.service.Update(r.Context(), identity.UserID, quizID, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quiz)
}

type statusRequest struct {
	Status models.QuizStatus `json:"status" validate:"required"`
}

func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	quizID, err := pathID(r, "quizID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}

	quiz, err := h.service.AdvanceStatus(r.Context(), identity.UserID, quizID, req.Status)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quiz)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	quizID, err := pathID(r, "quizID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, quizID); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
