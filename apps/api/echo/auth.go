package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/access"
)

const contextClaimsKey = "claims"

// Claims carry the portal role a key unlocked. They never expire: clearing the token is the only way out.
type Claims struct {
	jwt.RegisteredClaims
	Role access.Role `json:"role"`
}

type tokenAuth struct {
	issuer string
	key    []byte
}

func newTokenAuth(issuer, secretKey string) tokenAuth {
	return tokenAuth{issuer: issuer, key: []byte(secretKey)}
}

// generate signs a token for role.
func (a tokenAuth) generate(role access.Role) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   a.issuer,
			Subject:  string(role),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a tokenAuth) parse(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, errors.New("unknown role")
	}
	return claims, nil
}

// middleware reads the bearer token, or the `token` query param for clients that cannot set headers.
func (a tokenAuth) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := ""
			if h := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			} else {
				token = ctx.QueryParam("token")
			}
			if token == "" {
				return errMissingToken
			}
			claims, err := a.parse(token)
			if err != nil {
				return errInvalidToken
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errMissingToken
}

type accessApi struct {
	gate     *access.Gate
	tokens   tokenAuth
	validate *validator.Validate
}

func registerAccessAPI(g *echo.Group, auth echo.MiddlewareFunc, gate *access.Gate, tokens tokenAuth, validate *validator.Validate) {
	api := accessApi{gate: gate, tokens: tokens, validate: validate}

	ag := g.Group("/access")
	ag.POST("", api.enter)
	ag.GET("", api.current, auth)
}

// Handlers

func (api *accessApi) enter(ctx echo.Context) error {
	var data AccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AccessRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	grant, err := api.gate.Resolve(data.Key, data.RequiredRole)
	if err != nil {
		// no lockout
		return core.NewValidationError(err)
	}
	token, err := api.tokens.generate(grant.Role)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, AccessResponse{Role: grant.Role, Token: token, Redirect: grant.Redirect})
}

func (api *accessApi) current(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, access.Grant{Role: claims.Role, Redirect: claims.Role.Dashboard()})
}
