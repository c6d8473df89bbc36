package echoapi

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core/access"
)

func TestAccessAPI_enter(t *testing.T) {
	app := setup(t)
	invalid := marshalObj(t, httpErr{Error: "Invalid access key."})

	tests := []httpTest{
		{name: "wrong key", body: []byte(`{"key":"PASSWORD"}`), wantCode: http.StatusBadRequest, wantData: invalid},
		{name: "empty key", body: []byte(`{"key":""}`), wantCode: http.StatusBadRequest, wantData: invalid},
		{name: "wrong case", body: []byte(`{"key":"learner8"}`), wantCode: http.StatusBadRequest, wantData: invalid},
		{
			name: "key of another role", body: []byte(`{"key":"EDUCATOR8","required_role":"student"}`),
			wantCode: http.StatusBadRequest, wantData: invalid,
		},
		{name: "unknown required role", body: []byte(`{"key":"EDUCATOR8","required_role":"admin"}`), wantCode: http.StatusBadRequest},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/access"
	}
	runHTTPTests(t, app, tests)

	granted := []struct {
		name string
		body string
		role access.Role
	}{
		{name: "student", body: `{"key":"LEARNER8"}`, role: access.RoleStudent},
		{name: "teacher, padded", body: `{"key":"  EDUCATOR8 "}`, role: access.RoleTeacher},
		{name: "teacher required", body: `{"key":"EDUCATOR8","required_role":"teacher"}`, role: access.RoleTeacher},
	}
	for _, tt := range granted {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, "/v1/access", []byte(tt.body)))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp AccessResponse
			unmarshal(t, rec, &resp)
			assert.Equal(t, tt.role, resp.Role)
			assert.Equal(t, tt.role.Dashboard(), resp.Redirect)

			claims, err := app.tokens.parse(resp.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.role, claims.Role)
			assert.Nil(t, claims.ExpiresAt, "tokens never expire")
		})
	}
}

func TestAccessAPI_current(t *testing.T) {
	app := setup(t)

	forged, err := newTokenAuth(app.conf.AppName, "not the secret").generate(access.RoleTeacher)
	require.NoError(t, err)
	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: app.conf.AppName},
		Role:             "principal",
	}).SignedString([]byte(app.conf.SecretKey))
	require.NoError(t, err)

	invalid := marshalObj(t, httpErr{Error: "invalid or expired jwt"})
	tests := []httpTest{
		{name: "no token", path: "/v1/access", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingTokenBody)},
		{name: "garbage token", path: "/v1/access", token: "lol", wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "forged token", path: "/v1/access", token: forged, wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "unknown role", path: "/v1/access", token: unknownRole, wantCode: http.StatusUnauthorized, wantData: invalid},
		{
			name: "student", path: "/v1/access", token: app.token(t, access.RoleStudent), wantCode: http.StatusOK,
			wantData: marshalObj(t, access.Grant{Role: access.RoleStudent, Redirect: "/student"}),
		},
		{
			name: "token as query param", path: "/v1/access?token=" + app.token(t, access.RoleTeacher), wantCode: http.StatusOK,
			wantData: marshalObj(t, access.Grant{Role: access.RoleTeacher, Redirect: "/teacher"}),
		},
	}
	runHTTPTests(t, app, tests)
}

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Classboard!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
