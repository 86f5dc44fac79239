package httpapi

import (
	"errors"
	"net/http"

	"flux/internal/ports/oauthstate"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type PlatformController struct {
	accounts AccountUseCase
}

func NewPlatformController(accounts AccountUseCase) *PlatformController {
	return &PlatformController{accounts: accounts}
}

func (ctl *PlatformController) requestUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return uuid.Nil, false
	}
	userID, err := uuid.FromString(userIDVal.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

// Connect handles GET /api/x/connect: starts the PKCE flow.
func (ctl *PlatformController) Connect(c *gin.Context) {
	userID, ok := ctl.requestUserID(c)
	if !ok {
		return
	}
	authURL, err := ctl.accounts.BeginConnect(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start connect flow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorization_url": authURL})
}

// Callback handles GET /api/x/callback: finishes the PKCE flow.
func (ctl *PlatformController) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state or code"})
		return
	}

	account, err := ctl.accounts.CompleteConnect(c.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, oauthstate.ErrStateNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state expired or already used"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not complete connect flow"})
		return
	}
	c.JSON(http.StatusOK, account)
}

// LegacyConnect handles GET /api/x/legacy/connect (OAuth1).
func (ctl *PlatformController) LegacyConnect(c *gin.Context) {
	userID, ok := ctl.requestUserID(c)
	if !ok {
		return
	}
	callbackURL := c.Query("callback_url")
	if callbackURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing callback_url"})
		return
	}

	authURL, err := ctl.accounts.BeginLegacyConnect(c.Request.Context(), userID, callbackURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not obtain request token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorization_url": authURL})
}

// LegacyCallback handles GET /api/x/legacy/callback (OAuth1).
func (ctl *PlatformController) LegacyCallback(c *gin.Context) {
	oauthToken := c.Query("oauth_token")
	verifier := c.Query("oauth_verifier")
	if oauthToken == "" || verifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing oauth_token or oauth_verifier"})
		return
	}

	account, err := ctl.accounts.CompleteLegacyConnect(c.Request.Context(), oauthToken, verifier)
	if err != nil {
		if errors.Is(err, oauthstate.ErrStateNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request token expired or already used"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not complete connect flow"})
		return
	}
	c.JSON(http.StatusOK, account)
}
