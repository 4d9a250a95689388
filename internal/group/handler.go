package group

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
		h.logger.Error("group request failed", zap.Error(err))
	}
	httpx.Error(w, err)
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	group, err := h.service.Create(identity.UserID, req.Name, req.Description)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, group)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	groups, err := h.service.ListForUser(identity.UserID, identity.Role)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	group, err := h.service.Get(identity.UserID, groupID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.Delete(identity.UserID, groupID); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	inviteCode := r.URL.Query().Get("inviteCode")
	if inviteCode == "" {
		httpx.Error(w, models.ErrValidation("invite code is required"))
		return
	}

	preview, err := h.service.Lookup(inviteCode)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

type joinRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	group, err := h.service.Join(identity.UserID, req.InviteCode)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	studentID, err := pathID(r, "studentID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.RemoveMember(identity.UserID, groupID, studentID); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type assignRequest struct {
	QuizID   uint                `json:"quiz_id" validate:"required"`
	Settings models.QuizSettings `json:"settings"`
}

func (h *Handler) AssignQuiz(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, models.ErrValidation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, models.ErrValidation(err.Error()))
		return
	}

	assignment, err := h.service.AssignQuiz(identity.UserID, groupID, req.QuizID, req.Settings)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) Assignments(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	assignments, err := h.service.Assignments(identity.UserID, groupID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *Handler) Grades(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	grades, err := h.service.Grades(r.Context(), identity.UserID, groupID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"grades": grades})
}
