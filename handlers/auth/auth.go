package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"paintbox/core"
)

// launchTTL bounds how old a signed launch may be. The host signs a fresh
// parameter set every time it opens the mini-app, so anything older is a
// replay.
const launchTTL = 24 * time.Hour

var (
	hostSecret []byte
	jwtSecret  []byte
)

// AppClaims represents the custom claims for the session JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

func InitAuth() {
	hostSecret = []byte(os.Getenv("HOST_APP_SECRET"))
	if len(hostSecret) == 0 {
		logrus.Warn("HOST_APP_SECRET is not set. Host launch verification will not work.")
	}
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
}

// signPayload computes the launch signature: every pair except signature
// itself, sorted by key, joined as key=value lines, HMAC-SHA256 under the
// shared host secret.
func signPayload(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, hostSecret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyLaunch validates the launch parameter string the host platform
// injected into the mini-app. Missing parameters mean the app was opened
// outside the host (core.ErrNotEmbedded); present but invalid parameters
// mean the launch cannot be trusted (core.ErrHostRejected). Clients show a
// different blocking screen for each.
func VerifyLaunch(params string) (*core.HostUser, error) {
	if strings.TrimSpace(params) == "" {
		return nil, core.ErrNotEmbedded
	}
	values, err := url.ParseQuery(params)
	if err != nil {
		return nil, core.ErrNotEmbedded
	}
	signature := values.Get("signature")
	if signature == "" {
		return nil, core.ErrNotEmbedded
	}

	expected := signPayload(values)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("%w: bad signature", core.ErrHostRejected)
	}

	ts, err := strconv.ParseInt(values.Get("auth_ts"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: missing auth_ts", core.ErrHostRejected)
	}
	if time.Since(time.Unix(ts, 0)) > launchTTL {
		return nil, fmt.Errorf("%w: launch expired", core.ErrHostRejected)
	}

	var user core.HostUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: unreadable user payload", core.ErrHostRejected)
	}
	if user.Subject == "" {
		return nil, fmt.Errorf("%w: user without subject", core.ErrHostRejected)
	}
	return &user, nil
}

// CreateSessionToken mints the bearer token the client uses for the rest
// of its visit.
func CreateSessionToken(user *core.HostUser) (string, error) {
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)), // 1 week
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Locale:    user.Locale,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// User rebuilds the host identity carried in a token's claims.
func (c *AppClaims) User() *core.HostUser {
	return &core.HostUser{
		Subject:   c.Subject,
		Username:  c.Username,
		Name:      c.Name,
		AvatarURL: c.AvatarURL,
		Locale:    c.Locale,
	}
}

// HandleSessionExchange trades a signed host launch for a session token.
func HandleSessionExchange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Params string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := VerifyLaunch(body.Params)
		if err != nil {
			writeLaunchError(w, err)
			return
		}

		token, err := CreateSessionToken(user)
		if err != nil {
			logrus.WithError(err).Error("Failed to sign session token")
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": token,
			"user":  user,
		})
	}
}

func writeLaunchError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, core.ErrNotEmbedded):
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "open this app from inside the host platform",
			"code":  "not_embedded",
		})
	case errors.Is(err, core.ErrHostRejected):
		logrus.WithError(err).Warn("Rejected host launch")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "launch could not be verified",
			"code":  "host_rejected",
		})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "launch verification failed"})
	}
}
