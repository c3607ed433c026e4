package middlewares

import (
	"errors"
	"hbs/src/config"
	"hbs/src/types"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// AuthMiddleware verifies the bearer token and puts the caller's id, email
// and role on the context. Tokens are issued elsewhere; the subject carries
// the user id.
func AuthMiddleware(ctx *gin.Context) {
	claims, err := parseBearer(ctx.Request.Header.Get("Authorization"), config.JWTSecret())
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
		return
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		log.Printf("error parsing claims subject %q\n", claims.Subject)
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
		return
	}
	role := claims.Role
	if role == "" {
		role = types.ROLE_USER
	}
	ctx.Set("id", uint(uid))
	ctx.Set("email", claims.Email)
	ctx.Set("role", role)
	ctx.Next()
}

func parseBearer(header string, secret []byte) (*types.Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	scheme, reqToken, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || reqToken == "" {
		return nil, errors.New("missing bearer token")
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly(ctx *gin.Context) {
	if ctx.GetString("role") != types.ROLE_ADMIN {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin access required"})
		return
	}
	ctx.Next()
}
