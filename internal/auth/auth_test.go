package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"go.uber.org/zap"
)

func statusOf(err error) int {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se.GetStatus()
	}
	return 0
}

func TestHandleMe(t *testing.T) {
	db, err := database.Open(database.MemoryPath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close(db)

	user := models.User{Username: "testuser", IsModerator: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	handler := NewAuthHandler(testSecret, db)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(user.ID)
		input := &AuthInput{Cookie: "theme=dark; auth_token=" + token}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}
		if resp.Body.Username != user.Username {
			t.Errorf("expected username %s, got %s", user.Username, resp.Body.Username)
		}
		if !resp.Body.IsModerator {
			t.Errorf("expected moderator flag")
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := handler.HandleMe(context.Background(), &AuthInput{})
		if statusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		token, _ := handler.GenerateToken(user.ID + 100)
		_, err := handler.HandleMe(context.Background(), &AuthInput{Cookie: CookieName + "=" + token})
		if statusOf(err) != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestAuthorize(t *testing.T) {
	handler := NewAuthHandler(testSecret, nil)

	t.Run("ValidToken", func(t *testing.T) {
		id, err := handler.Authorize(context.Background(), CookieName+"="+signedToken(t, 42, time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != 42 {
			t.Errorf("expected user 42, got %d", id)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		_, err := handler.Authorize(context.Background(), CookieName+"="+signedToken(t, 42, -time.Hour))
		if statusOf(err) != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthHandler("other-secret", nil)
		token, _ := other.GenerateToken(42)
		_, err := handler.Authorize(context.Background(), CookieName+"="+token)
		if statusOf(err) != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", err)
		}
	})
}

func TestRequireModerator(t *testing.T) {
	db, err := database.Open(database.MemoryPath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close(db)

	plain := models.User{Username: "plain"}
	admin := models.User{Username: "admin", IsAdmin: true}
	db.Create(&plain)
	db.Create(&admin)
	handler := NewAuthHandler(testSecret, db)

	token, _ := handler.GenerateToken(plain.ID)
	if _, err := handler.RequireModerator(context.Background(), CookieName+"="+token); statusOf(err) != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}

	token, _ = handler.GenerateToken(admin.ID)
	user, err := handler.RequireModerator(context.Background(), CookieName+"="+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != admin.ID {
		t.Errorf("expected admin, got %d", user.ID)
	}
}
