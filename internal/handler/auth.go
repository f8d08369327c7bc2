package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/auth"
	"github.com/BuzzLyutic/tasksync/internal/middleware"
	"github.com/BuzzLyutic/tasksync/internal/repo"
	"github.com/BuzzLyutic/tasksync/pkg/respond"
)

type AuthHandler struct {
	service *auth.Service
	logger  *zap.Logger
}

func NewAuthHandler(srv *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		logger:  logger,
	}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, session)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, session)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "no token provided")
		return
	}

	user, err := h.service.Me(r.Context(), ownerID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrPasswordLong):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidLogin):
		respond.Error(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "user not found")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
