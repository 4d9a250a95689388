package attempt

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"classquiz/internal/auth"
	"classquiz/internal/models"
	"classquiz/pkg/httpx"
)

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
		h.logger.Error("attempt request failed", zap.Error(err))
	}
	httpx.Error(w, err)
}

func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	quizzes, err := h.service.ListAvailable(identity.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *Handler) GetPresentation(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	assignmentID, err := pathID(r, "assignmentID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	presentation, err := h.service.GetPresentation(assignmentID, identity.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, presentation)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	assignmentID, err := pathID(r, "assignmentID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}

	result, err := h.service.Submit(r.Context(), assignmentID, identity.UserID, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	attemptID, err := pathID(r, "attemptID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	review, err := h.service.GetReview(attemptID, identity.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, review)
}

func (h *Handler) MyGrades(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	grades, err := h.service.StudentGrades(identity.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"grades": grades})
}
