package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"barberbook/internal/apperr"
	"barberbook/internal/model"
	"barberbook/libs/auth"
)

// UserStore is the slice of persistence the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (model.User, string, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}

type AuthHandler struct {
	users  UserStore
	signer *auth.Signer
	logger *slog.Logger
}

func NewAuthHandler(users UserStore, signer *auth.Signer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, signer: signer, logger: logger}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number"`
	IsBarber    bool   `json:"is_barber"`
	ShopName    string `json:"shop_name"`
	ShopAddress string `json:"shop_address"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	IsBarber    bool   `json:"is_barber"`
	Bio         string `json:"bio,omitempty"`
	ShopName    string `json:"shop_name,omitempty"`
	ShopAddress string `json:"shop_address,omitempty"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		IsBarber:    u.IsBarber,
		Bio:         u.Bio,
		ShopName:    u.ShopName,
		ShopAddress: u.ShopAddress,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user := model.User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsActive:    true,
		IsBarber:    req.IsBarber,
		ShopName:    strings.TrimSpace(req.ShopName),
		ShopAddress: strings.TrimSpace(req.ShopAddress),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.users.CreateUser(r.Context(), user, string(hash)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.signer.Issue(user.ID, user.Email, roleFor(user))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, hash, err := h.users.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same response for unknown email and bad password.
		writeError(w, r, h.logger, apperr.Forbidden("invalid credentials"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, r, h.logger, apperr.Forbidden("invalid credentials"))
		return
	}
	if !user.IsActive {
		writeError(w, r, h.logger, apperr.Forbidden("account disabled"))
		return
	}

	token, err := h.signer.Issue(user.ID, user.Email, roleFor(user))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ident, err := h.Identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.users.GetUser(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Identity resolves the caller from the Authorization header.
func (h *AuthHandler) Identity(r *http.Request) (model.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.Identity{}, apperr.Forbidden("missing authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return model.Identity{}, apperr.Forbidden("malformed authorization header")
	}
	claims, err := h.signer.Verify(strings.TrimSpace(token))
	if err != nil {
		return model.Identity{}, apperr.Forbidden("invalid or expired token")
	}
	return model.Identity{UserID: claims.Sub, Email: claims.Email, Role: claims.Role}, nil
}

func roleFor(u model.User) string {
	if u.IsBarber {
		return auth.RoleBarber
	}
	return auth.RoleCustomer
}
