package jwt

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenTypeAccess = "access"
	tokenTypeStream = "stream"
)

type Service interface {
	GenerateAccessToken(userID string, companyID string, role user.Role) (token string, expiresAt int64, err error)
	GenerateStreamToken(userID string, companyID string, runID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (claims user.Claims, runID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(userID string, companyID string, role user.Role) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"role":       string(role),
		"type":       tokenTypeAccess,
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token for one run's progress
// stream. EventSource cannot send headers, so it travels as a query param.
func (j *JWTService) GenerateStreamToken(userID string, companyID string, runID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"run_id":     runID,
		"type":       tokenTypeStream,
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateStreamToken validates a stream token and returns its tenant and run
func (j *JWTService) ValidateStreamToken(tokenString string) (claims user.Claims, runID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return user.Claims{}, "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != tokenTypeStream {
		return user.Claims{}, "", jwt.ErrInvalidJWT()
	}

	userID, ok := stringClaim(token, "user_id")
	if !ok {
		return user.Claims{}, "", jwt.ErrInvalidJWT()
	}
	companyID, ok := stringClaim(token, "company_id")
	if !ok {
		return user.Claims{}, "", jwt.ErrInvalidJWT()
	}
	runID, ok = stringClaim(token, "run_id")
	if !ok {
		return user.Claims{}, "", jwt.ErrInvalidJWT()
	}

	return user.Claims{UserID: userID, CompanyID: companyID}, runID, nil
}

func stringClaim(token jwt.Token, key string) (string, bool) {
	v, ok := token.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
