package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const submissionTokenContextKey = "submission_id"

// mintSubmissionToken produces the opaque bearer token a candidate presents
// on every request after login, binding it to submissionID via HMAC so a
// token cannot be forged or replayed against a different submission.
func mintSubmissionToken(signingKey, submissionID string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(submissionID))
	return submissionID + "." + hex.EncodeToString(mac.Sum(nil))
}

// verifySubmissionToken checks that token was minted for submissionID by
// this server, in constant time.
func verifySubmissionToken(signingKey, submissionID, token string) bool {
	expected := mintSubmissionToken(signingKey, submissionID)
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// requireCandidateToken validates the bearer token against the :id path
// param, rejecting any token minted for a different submission. Handlers
// downstream can trust c.Param("id") once this middleware passes.
func (s *Server) requireCandidateToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		submissionID := c.Param("id")
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope{
				Error: "unauthorized", Message: "missing bearer token",
			})
			return
		}
		if !verifySubmissionToken(s.cfg.Session.TokenSigningKey, submissionID, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope{
				Error: "unauthorized", Message: "token does not match submission",
			})
			return
		}
		c.Set(submissionTokenContextKey, submissionID)
		c.Next()
	}
}
