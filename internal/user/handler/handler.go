// Package handler exposes the user account commands over HTTP. Handlers stay
// thin: decode, delegate, encode. Business validation lives in the value
// objects and the aggregate; error-to-status mapping lives in httputil.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/internal/user/service"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/platform/middleware/principal"
	"custodia/pkg/requestcontext"
)

// Service is the command surface the handler drives.
type Service interface {
	CreateUser(ctx context.Context, cmd service.CreateUserCommand) (domain.UserID, error)
	UpdateUser(ctx context.Context, cmd service.UpdateUserCommand) (service.UpdateUserResult, error)
	ConfirmEmailChange(ctx context.Context, token string) error
	DeactivateUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) error
	ReactivateUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) error
	DeleteUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) error
	GetUser(ctx context.Context, accountID domain.UserID) (*user.UserAccount, error)
	ListUsers(ctx context.Context) ([]*user.UserAccount, error)
	ListUserLogs(ctx context.Context, accountID domain.UserID) ([]*user.AccountLog, error)
}

// Handler handles user account endpoints.
type Handler struct {
	logger   *zap.Logger
	users    Service
	verifier principal.Verifier
}

// New creates a user account Handler.
func New(users Service, verifier principal.Verifier, logger *zap.Logger) *Handler {
	return &Handler{
		logger:   logger,
		users:    users,
		verifier: verifier,
	}
}

// Register mounts the user routes. Everything except email confirmation
// requires an authenticated principal; the confirmation token is its own
// credential.
func (h *Handler) Register(r chi.Router) {
	userRouter := chi.NewRouter()
	userRouter.Use(chimiddleware.RequestID)
	userRouter.Use(chimiddleware.RealIP)
	userRouter.Use(chimiddleware.Recoverer)
	userRouter.Use(chimiddleware.Timeout(30 * time.Second))

	userRouter.Post("/users/email/confirm", h.handleConfirmEmailChange)

	userRouter.Group(func(auth chi.Router) {
		auth.Use(principal.Require(h.verifier, h.logger))
		auth.Post("/users", h.handleCreateUser)
		auth.Get("/users", h.handleListUsers)
		auth.Get("/users/{userID}", h.handleGetUser)
		auth.Patch("/users/{userID}", h.handleUpdateUser)
		auth.Delete("/users/{userID}", h.handleDeleteUser)
		auth.Post("/users/{userID}/deactivate", h.handleDeactivateUser)
		auth.Post("/users/{userID}/reactivate", h.handleReactivateUser)
		auth.Get("/users/{userID}/logs", h.handleListUserLogs)
	})

	r.Mount("/", userRouter)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	id, err := h.users.CreateUser(ctx, service.CreateUserCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		By:        requestcontext.Principal(ctx),
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create user", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, createUserResponse{ID: id.String()})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	res, err := h.users.UpdateUser(ctx, service.UpdateUserCommand{
		UserID:    accountID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		By:        requestcontext.Principal(ctx),
	})
	if err != nil {
		h.writeServiceError(ctx, w, "update user", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updateUserResponse{
		NameChanged:        res.NameChanged,
		EmailChangeStarted: res.EmailChangeStarted,
		ConfirmationToken:  res.ConfirmationToken,
	})
}

func (h *Handler) handleConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.users.ConfirmEmailChange(ctx, req.Token); err != nil {
		h.writeServiceError(ctx, w, "confirm email change", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, h.users.DeactivateUser)
}

func (h *Handler) handleReactivateUser(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, h.users.ReactivateUser)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, h.users.DeleteUser)
}

func (h *Handler) handleStatusChange(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.UserID, domain.AuditPrincipal) error) {
	ctx := r.Context()

	accountID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := op(ctx, accountID, requestcontext.Principal(ctx)); err != nil {
		h.writeServiceError(ctx, w, "change user status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.users.GetUser(ctx, accountID)
	if err != nil {
		h.writeServiceError(ctx, w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(account))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.users.ListUsers(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list users", err)
		return
	}

	out := make([]userResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toUserResponse(account))
	}
	httputil.WriteJSON(w, http.StatusOK, listUsersResponse{Users: out})
}

func (h *Handler) handleListUserLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.users.ListUserLogs(ctx, accountID)
	if err != nil {
		h.writeServiceError(ctx, w, "list user logs", err)
		return
	}

	out := make([]logEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toLogEntryResponse(entry))
	}
	httputil.WriteJSON(w, http.StatusOK, listLogsResponse{Entries: out})
}

// writeServiceError logs infrastructure failures and delegates status
// mapping. Coded domain errors pass through untouched.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", chimiddleware.GetReqID(ctx)),
			zap.Error(err),
		)
	}
	httputil.WriteError(w, err)
}
