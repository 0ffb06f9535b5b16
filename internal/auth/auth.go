package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	CookieName    = "auth_token"
	TokenDuration = 24 * time.Hour
)

// AuthInput is embedded in the input of every authenticated operation.
type AuthInput struct {
	Cookie string `header:"Cookie"`
}

type AuthHandler struct {
	db     *gorm.DB
	secret []byte
	now    func() time.Time
}

func NewAuthHandler(secret string, db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db, secret: []byte(secret), now: time.Now}
}

func (h *AuthHandler) GenerateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     h.now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

func (h *AuthHandler) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  h.now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

type session struct {
	userID    uint
	expiresAt time.Time
}

func (h *AuthHandler) parse(tokenString string) (session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil || !token.Valid {
		return session{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return session{}, errors.New("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return session{}, errors.New("invalid token claims")
	}
	s := session{userID: uint(userIDFloat)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}
	return s, nil
}

func tokenFromCookieHeader(header string) string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

// Authorize resolves the session cookie of a request to a user id.
func (h *AuthHandler) Authorize(ctx context.Context, cookieHeader string) (uint, error) {
	tokenString := tokenFromCookieHeader(cookieHeader)
	if tokenString == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	s, err := h.parse(tokenString)
	if err != nil {
		return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	return s.userID, nil
}

// CurrentUser is Authorize followed by loading the user.
func (h *AuthHandler) CurrentUser(ctx context.Context, cookieHeader string) (*models.User, error) {
	userID, err := h.Authorize(ctx, cookieHeader)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error401Unauthorized("Unauthorized: Unknown user")
		}
		return nil, huma.Error500InternalServerError("Database error")
	}
	return &user, nil
}

// RequireModerator returns the current user if they are an admin or moderator.
func (h *AuthHandler) RequireModerator(ctx context.Context, cookieHeader string) (*models.User, error) {
	user, err := h.CurrentUser(ctx, cookieHeader)
	if err != nil {
		return nil, err
	}
	if !user.CanModerate() {
		return nil, huma.Error403Forbidden("Forbidden: moderators only")
	}
	return user, nil
}

type MeOutput struct {
	Body struct {
		ID           uint       `json:"id"`
		Username     string     `json:"username"`
		LastImportAt *time.Time `json:"lastImportAt"`
		IsAdmin      bool       `json:"isAdmin"`
		IsModerator  bool       `json:"isModerator"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	user, err := h.CurrentUser(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	resp := &MeOutput{}
	resp.Body.ID = user.ID
	resp.Body.Username = user.Username
	resp.Body.LastImportAt = user.LastImportAt
	resp.Body.IsAdmin = user.IsAdmin
	resp.Body.IsModerator = user.IsModerator
	return resp, nil
}
