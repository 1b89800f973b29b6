package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/auth/packets"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// Accounts is the slice of the store the auth endpoints need.
type Accounts interface {
	CreateUser(ctx context.Context, email, hashedPassword string, name *string) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id int, email string, name *string) error
}

type AccountManager struct {
	jwtSecret string
	store     Accounts
}

func accountManagementController(secret string, store Accounts) *AccountManager {
	return &AccountManager{jwtSecret: secret, store: store}
}

// AuthPublicModule mounts signup and login, which run without a token.
func AuthPublicModule(secret string, store Accounts) api.Module {
	ctl := accountManagementController(secret, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/auth/signup", ctl.userSignup)
		c.PUBLIC_POST("/auth/login", ctl.userLogin)
	})
}

// AuthSessionModule mounts the profile endpoints of the logged in user.
func AuthSessionModule(secret string, store Accounts) api.Module {
	ctl := accountManagementController(secret, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/auth/current_profile", ctl.getCurrentProfile)
		c.PUT("/auth/current_profile", ctl.updateCurrentProfile)
	})
}

var errSomethingWrong = &api.APIError{Code: http.StatusInternalServerError, Message: "Something went wrong, please try again"}

// POST /api/auth/signup
func (a *AccountManager) userSignup(ctx *gin.Context) (any, *api.APIError) {
	var request packets.SignupRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		log.Error().Err(err).Msg("error binding signup request")
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	if existing, _ := a.store.GetUserByEmail(ctx, request.Email); existing != nil {
		log.Warn().Str("email", request.Email).Msg("email already registered")
		return nil, &api.APIError{Code: http.StatusConflict, Message: "Email already registered, please sign up with a different email"}
	}

	hashed, err := middleware.HashPassword(request.Password)
	if err != nil {
		log.Error().Err(err).Str("email", request.Email).Msg("error hashing password")
		return nil, errSomethingWrong
	}

	userID, err := a.store.CreateUser(ctx, request.Email, hashed, request.Name)
	if err != nil {
		log.Error().Err(err).Str("email", request.Email).Msg("could not create user")
		return nil, errSomethingWrong
	}

	token, err := middleware.GenerateJWT(userID, a.jwtSecret)
	if err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("could not generate JWT")
		return nil, errSomethingWrong
	}

	return api.Created(packets.TokenResponse{Token: token}), nil
}

// POST /api/auth/login
func (a *AccountManager) userLogin(ctx *gin.Context) (any, *api.APIError) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	user, err := a.store.GetUserByEmail(ctx, request.Email)
	if err != nil || !middleware.CheckPassword(user.HashedPassword, request.Password) {
		log.Info().Err(err).Str("email", request.Email).Msg("login failed")
		return nil, &api.APIError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
	}

	token, err := middleware.GenerateJWT(user.ID, a.jwtSecret)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("could not generate JWT")
		return nil, errSomethingWrong
	}

	return packets.TokenResponse{Token: token}, nil
}

// GET /api/auth/current_profile
func (a *AccountManager) getCurrentProfile(_ *gin.Context, user *model.User) (any, *api.APIError) {
	return profileResponse(user), nil
}

// PUT /api/auth/current_profile
func (a *AccountManager) updateCurrentProfile(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.UpdateCurrentProfileRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	if request.Email != user.Email {
		if other, _ := a.store.GetUserByEmail(ctx, request.Email); other != nil {
			return nil, &api.APIError{Code: http.StatusConflict, Message: "Email already registered"}
		}
	}

	if err := a.store.UpdateUserProfile(ctx, user.ID, request.Email, request.Name); err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("error updating profile")
		return nil, errSomethingWrong
	}

	updated, err := a.store.GetUserByID(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("error fetching updated profile")
		return nil, errSomethingWrong
	}

	return profileResponse(updated), nil
}

func profileResponse(u *model.User) packets.ProfileResponse {
	return packets.ProfileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}
