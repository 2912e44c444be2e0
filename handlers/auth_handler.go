package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/campusfest/tournament-live/services"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler issues admin tokens against the env-configured credential
// pair. There are no user accounts here; the only principal is the tournament
// operator.
type AuthHandler struct {
	adminUsername     string
	adminPasswordHash string
	jwtSecret         []byte
}

func NewAuthHandler(adminUsername, adminPasswordHash, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		jwtSecret:         []byte(jwtSecret),
	}
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Username != h.adminUsername ||
		bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(input.Password)) != nil {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidCredentials)
		return
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"name": h.adminUsername,
		"exp":  time.Now().Add(time.Hour * 24).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token": tokenString,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
