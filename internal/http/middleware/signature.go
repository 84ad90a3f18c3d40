// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements webhook signature verification. The sender signs the
// raw request body with HMAC-SHA512 using the shared webhook secret and sends
// the hex digest in the X-Neynar-Signature header.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HeaderSignature carries the hex HMAC-SHA512 of the request body.
const HeaderSignature = "X-Neynar-Signature"

var signatureRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_signature_rejections_total",
		Help: "Webhook requests rejected by signature verification, by reason.",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(signatureRejections)
}

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature rejects requests whose signature does not match the body
// with 401 {"error": "..."}. An empty secret disables verification. The body
// is restored for downstream handlers.
func VerifySignature(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		sig := strings.TrimSpace(c.GetHeader(HeaderSignature))
		if sig == "" {
			reject(c, "missing", "missing signature")
			return
		}
		want, err := hex.DecodeString(strings.ToLower(sig))
		if err != nil {
			reject(c, "malformed", "malformed signature")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			signatureRejections.WithLabelValues("unreadable").Inc()
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body unreadable"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha512.New, []byte(secret))
		mac.Write(body)
		if !hmac.Equal(mac.Sum(nil), want) {
			reject(c, "mismatch", "invalid signature")
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, reason, msg string) {
	signatureRejections.WithLabelValues(reason).Inc()
	LoggerFrom(c).Warn().Str("reason", reason).Msg("webhook signature rejected")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
