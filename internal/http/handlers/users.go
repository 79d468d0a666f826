package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]any) (user.User, error)
	Delete(ctx context.Context, userID string) error
}

type UsersHandler struct {
	users    ProfileStore
	profiles *cache.Cache
}

func NewUsersHandler(users ProfileStore, profiles *cache.Cache) *UsersHandler {
	return &UsersHandler{
		users:    users,
		profiles: profiles,
	}
}

// mutable profile fields, keyed by every accepted client spelling. Anything
// not in this table is silently ignored on update.
var profileFieldAllowList = map[string]string{
	"firstName":     "first_name",
	"first_name":    "first_name",
	"lastName":      "last_name",
	"last_name":     "last_name",
	"dob":           "dob",
	"profile-photo": "profile_photo",
	"profilePhoto":  "profile_photo",
	"profile_photo": "profile_photo",
}

func profileProjection(u user.User) gin.H {
	return gin.H{
		"user-id":        u.ID,
		"profile-photo":  u.ProfilePhoto,
		"email":          u.Email,
		"email-verified": u.EmailVerified,
		"mobile":         u.Mobile,
		"country-code":   u.CountryCode,
		"firstName":      u.FirstName,
		"lastName":       u.LastName,
		"dob":            u.DOB,
		"passwordSet":    u.PasswordSet,
		"created-at":     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// GetUser returns the authenticated user's profile projection. The password
// hash and store internals never leave the service.
func (h *UsersHandler) GetUser(ctx *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(ctx)

	if cached, ok := h.profiles.Get(userID); ok {
		RespondSuccess(ctx, cached)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	projection := profileProjection(u)

	h.profiles.Set(userID, projection)

	RespondSuccess(ctx, projection)
}

// UpdateUser applies the allow-listed profile fields for the authenticated
// user.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(ctx)

	raw, err := io.ReadAll(ctx.Request.Body)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"reason": err.Error()})
		return
	}

	var body map[string]any

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"json": "invalid_json_syntax"})
			return
		}
	}

	fields := make(map[string]any)

	for key, value := range body {
		if canonical, ok := profileFieldAllowList[key]; ok {
			fields[canonical] = value
		}
	}

	if len(fields) == 0 {
		RespondBadRequest(ctx, "No valid fields provided for update.", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.UpdateProfile(cctx, userID, fields)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	h.profiles.Delete(userID)

	RespondSuccess(ctx, gin.H{
		"user-id":       u.ID,
		"profile-photo": u.ProfilePhoto,
		"firstName":     u.FirstName,
		"lastName":      u.LastName,
		"dob":           u.DOB,
		"message":       "user details updated successfully",
	})
}

// DeleteUser hard-deletes the targeted user. The admin gate lives in the
// router (RequireRole); this handler only needs the target id.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	targetID := ctx.Query("user-id")

	if targetID == "" {
		RespondBadRequest(ctx, "Missing user-id query parameter.", nil)
		return
	}

	actorID, _ := middlewares.UserIDFromContext(ctx)
	actorEmail, _ := middlewares.EmailFromContext(ctx)

	slog.Default().InfoContext(ctx.Request.Context(), "admin delete requested",
		"actor_id", actorID,
		"actor_email", actorEmail,
		"target_id", targetID,
	)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.users.Delete(cctx, targetID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, err)
		return
	}

	h.profiles.Delete(targetID)

	RespondSuccess(ctx, gin.H{
		"message": "user deleted successfully",
	})
}
