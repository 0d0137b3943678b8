package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ptmquan/certprep/config"
	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	ContextCandidateID = "candidate_id"
	ContextRole        = "role"
)

// Claims carries the authenticated subject and role. Token issuance is the
// identity service's job; this layer only verifies.
type Claims struct {
	Role string `json:"role"` // "candidate" or "admin"
	jwt.RegisteredClaims
}

type Auth struct {
	secret        []byte
	candidateRepo repository.CandidateRepository
}

func NewAuth(cfg *config.Config, candidateRepo repository.CandidateRepository) *Auth {
	return &Auth{secret: []byte(cfg.Auth.JWTSecret), candidateRepo: candidateRepo}
}

// Authenticate verifies the bearer token and stores subject and role on the
// request context.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid token"})
			return
		}

		ctx.Set(ContextCandidateID, claims.Subject)
		ctx.Set(ContextRole, claims.Role)
		ctx.Next()
	}
}

// RequireEntitled is the hard precondition in front of every test route: a
// candidate whose membership/payment is not completed never reaches session
// creation.
func (a *Auth) RequireEntitled() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		candidateID := ctx.GetString(ContextCandidateID)
		profile, err := a.candidateRepo.FindByID(candidateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Candidate is not entitled to take the test"})
				return
			}
			log.Error().Err(err).Str("candidate_id", candidateID).Msg("entitlement lookup failed")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to verify entitlement"})
			return
		}
		if !profile.Entitled {
			ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Candidate is not entitled to take the test"})
			return
		}
		ctx.Next()
	}
}

// RequireRole gates admin routes.
func (a *Auth) RequireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetString(ContextRole) != role {
			ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Insufficient role"})
			return
		}
		ctx.Next()
	}
}
