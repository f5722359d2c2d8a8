package handler

import (
	"errors"
	"net/http"

	"investorportal/internal/middleware"
	"investorportal/internal/service"
	"investorportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler sets up the routing dependencies for authentication endpoints
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/otp/request", h.RequestOtp)
		auth.POST("/otp/verify", h.VerifyOtp)
		auth.POST("/refresh", h.RefreshToken)
		auth.POST("/logout", h.Logout)
	}

	router.GET("/me", middleware.RequireAuth(), h.GetMe)
}

// RequestOtp handles POST /auth/otp/request to send a login code
// @Summary      Request OTP
// @Description  Sends a one-time login code to the given phone number
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestOtpRequest  true  "Phone number in international format"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /auth/otp/request [post]
func (h *AuthHandler) RequestOtp(c *gin.Context) {
	var req service.RequestOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if err := h.authService.RequestOtp(c.Request.Context(), req); err != nil {
		if errors.Is(err, service.ErrTooManyRequests) {
			c.JSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Code sent"))
}

// VerifyOtp handles POST /auth/otp/verify to exchange a code for tokens
// @Summary      Verify OTP
// @Description  Verifies the one-time code and returns access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VerifyOtpRequest  true  "Phone and code"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /auth/otp/verify [post]
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var req service.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	tokenRes, err := h.authService.VerifyOtp(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooManyRequests):
			c.JSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, err.Error()))
		case errors.Is(err, service.ErrInvalidOtp):
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	// Set tokens as HttpOnly cookies
	middleware.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// RefreshToken handles POST /auth/refresh to issue new access and refresh tokens
// @Summary      Refresh token
// @Description  Issues a new access token and refresh token using a valid refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshTokenRequest   true  "Refresh Token"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Try reading refresh_token from cookie first, fallback to body
	refreshToken, cookieErr := c.Cookie("refresh_token")
	var req service.RefreshTokenRequest

	if cookieErr != nil || refreshToken == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
			return
		}
	} else {
		req = service.RefreshTokenRequest{RefreshToken: refreshToken}
	}

	tokenRes, err := h.authService.RefreshToken(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	// Set new tokens as HttpOnly cookies
	middleware.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout handles POST /auth/logout to clear auth cookies and revoke the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie("refresh_token"); err == nil && refreshToken != "" {
		_ = h.authService.Logout(c.Request.Context(), refreshToken)
	}
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe handles GET /me to return the current authenticated investor
// @Summary      Get current investor
// @Description  Get the currently authenticated investor
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.InvestorResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	investor, err := h.authService.GetInvestorByID(c.Request.Context(), investorID)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Investor not found"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, investor))
}
