package http

import (
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/infrastructure/logger"
	"instagram-feed/infrastructure/utils"
	"instagram-feed/usecase"

	"github.com/gin-gonic/gin"
)

const stateTTL = 10 * time.Minute

type IInstagramAuthHandler interface {
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	Status(c *gin.Context)
	Renew(c *gin.Context)
	Invalidate(c *gin.Context)
}

type instagramAuthHandler struct {
	auth       usecase.IAuthUsecase
	configured bool
	// openerOrigins receive the popup result; any other opener gets nothing.
	openerOrigins []string

	stateMu sync.Mutex
	states  map[string]time.Time // state -> expiry
	now     func() time.Time
}

// NewInstagramAuthHandler wires the OAuth routes. When configured is false the
// authorization routes answer 400 because no client id or redirect URI is set.
// openerOrigins are the site origins allowed to receive the popup result.
func NewInstagramAuthHandler(auth usecase.IAuthUsecase, configured bool, openerOrigins []string) IInstagramAuthHandler {
	return &instagramAuthHandler{
		auth:          auth,
		configured:    configured,
		openerOrigins: openerOrigins,
		states:        map[string]time.Time{},
		now:           time.Now,
	}
}

// GetAuthURL handles GET /api/instagram/auth-url.
func (h *instagramAuthHandler) GetAuthURL(c *gin.Context) {
	if !h.configured {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instagram oauth not configured"})
		return
	}
	state, err := utils.RandomState(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_generation_failed"})
		return
	}
	h.rememberState(state)
	c.JSON(http.StatusOK, gin.H{"auth_url": h.auth.AuthorizeURL(state), "state": state})
}

// Callback handles GET /auth/instagram/callback?code&state. With frontend=1 it
// answers with a page that posts the result to the opener window.
func (h *instagramAuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errParam, "description": c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_code"})
		return
	}
	if !h.consumeState(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	cred, err := h.auth.CompleteAuthorization(c.Request.Context(), code)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("instagram authorization failed")
		c.JSON(authErrorStatus(err), gin.H{"error": authErrorCode(err)})
		return
	}

	if c.Query("frontend") == "1" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		origins := h.openerOrigins
		if origins == nil {
			origins = []string{}
		}
		_ = connectedPage.Execute(c.Writer, connectedPageData{AccountID: cred.SubjectAccountID, Origins: origins})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "account_id": cred.SubjectAccountID, "expires_at": cred.ExpiresAt})
}

// Status handles GET /api/instagram/credential.
func (h *instagramAuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.Status(c.Request.Context()))
}

// Renew handles POST /api/instagram/credential/renew.
func (h *instagramAuthHandler) Renew(c *gin.Context) {
	cred, err := h.auth.Renew(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("manual renewal failed")
		c.JSON(authErrorStatus(err), gin.H{"error": authErrorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewed": true, "expires_at": cred.ExpiresAt})
}

// Invalidate handles DELETE /api/instagram/credential.
func (h *instagramAuthHandler) Invalidate(c *gin.Context) {
	if err := h.auth.Invalidate(c.Request.Context()); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed removing stored credential")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalidate_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (h *instagramAuthHandler) rememberState(state string) {
	now := h.now()
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}
	h.states[state] = now.Add(stateTTL)
}

// consumeState accepts a state once and only before it expires.
func (h *instagramAuthHandler) consumeState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return !h.now().After(exp)
}

func authErrorCode(err error) string {
	var ae *model.AuthError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	return string(model.AuthProviderUnavailable)
}

func authErrorStatus(err error) int {
	var ae *model.AuthError
	if !errors.As(err, &ae) {
		return http.StatusBadGateway
	}
	switch ae.Kind {
	case model.AuthInvalidCode, model.AuthExchangeRejected:
		return http.StatusBadRequest
	case model.AuthNotYetRenewable:
		return http.StatusConflict
	case model.AuthExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

type connectedPageData struct {
	AccountID string
	Origins   []string
}

// postMessage drops the message unless the opener's origin equals the target,
// so posting once per allowed origin reaches only the site itself.
var connectedPage = template.Must(template.New("connected").Parse(`<!DOCTYPE html><html><head><title>Instagram Connected</title></head><body><script>
var accountId = {{.AccountID}};
var origins = {{.Origins}};
if (window.opener && origins.length > 0) {
  origins.forEach(function (origin) { window.opener.postMessage({source: 'instagram-oauth', connected: true, account_id: accountId}, origin); });
  window.close();
} else { document.body.textContent = 'Instagram connected: ' + accountId; }
</script></body></html>`))
