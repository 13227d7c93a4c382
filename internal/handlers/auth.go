package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/services"
)

type AuthHandler struct {
	store      services.Store
	jwtService *services.JWTService
	botToken   string
}

func NewAuthHandler(store services.Store, jwtService *services.JWTService, botToken string) *AuthHandler {
	return &AuthHandler{
		store:      store,
		jwtService: jwtService,
		botToken:   botToken,
	}
}

// Authenticate validates Telegram Mini App init data, upserts the account
// and issues a JWT. The referral chain binds here and only here: an
// existing account never changes referrers, and a start_param pointing at
// yourself is dropped.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("init_data")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "init_data required"})
		return
	}

	values, err := url.ParseQuery(initData)
	if err != nil || !h.validateInitData(values) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid init data"})
		return
	}

	var tgUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &tgUser); err != nil || tgUser.ID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid user data"})
		return
	}

	var referredBy, referredByLevel2 int64
	if param := values.Get("start_param"); param != "" {
		if ref, err := strconv.ParseInt(strings.TrimPrefix(param, "ref_"), 10, 64); err == nil && ref != tgUser.ID {
			if refAcct, err := h.store.GetAccount(c.Request.Context(), ref); err == nil {
				referredBy = ref
				referredByLevel2 = refAcct.ReferredBy
			}
		}
	}

	acct, err := h.store.GetOrCreateAccount(c.Request.Context(), tgUser.ID, referredBy, referredByLevel2)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(acct.UID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":          acct.UID,
			"username":    tgUser.Username,
			"balance":     acct.Balance,
			"referred_by": acct.ReferredBy,
		},
	})
}

// validateInitData checks the Telegram Web App signature: the hash field
// must equal HMAC-SHA256 of the sorted key=value lines under the key
// HMAC-SHA256("WebAppData", botToken).
func (h *AuthHandler) validateInitData(values url.Values) bool {
	gotHash := values.Get("hash")
	if gotHash == "" {
		return false
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(h.botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(want), []byte(gotHash))
}
