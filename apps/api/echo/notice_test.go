package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/notice"
)

type noticeResponse struct {
	Item     notice.Notice `json:"item"`
	RemoteOK bool          `json:"remote_ok"`
	Message  string        `json:"message"`
}

func TestNoticeAPI(t *testing.T) {
	app := setup(t)
	teacher := app.token(t, access.RoleTeacher)
	student := app.token(t, access.RoleStudent)
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/notices", teacher,
		[]byte(`{"title":"  Sports day ","message":"Bring your kit","date":"2024-03-08"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created noticeResponse
	unmarshal(t, rec, &created)
	assert.Equal(t, "Sports day", created.Item.Title)
	assert.Equal(t, notice.CategoryInfo, created.Item.Type, "defaults to info")
	assert.Equal(t, "Saved locally; remote sync not configured.", created.Message)
	n := created.Item
	path := "/v1/notices/" + n.ID

	urgent := n
	urgent.Type = notice.CategoryUrgent

	runHTTPTests(t, app, []httpTest{
		{name: "needs a token", path: "/v1/notices", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingTokenBody)},
		{name: "students may read", path: "/v1/notices", token: student, wantCode: http.StatusOK, wantData: marshalObj(t, []notice.Notice{n})},
		{name: "retrieve", path: path, token: student, wantCode: http.StatusOK, wantData: marshalObj(t, n)},
		{name: "retrieve unknown", path: "/v1/notices/nope", token: student, wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
		{
			name: "students may not post", method: http.MethodPost, path: "/v1/notices", token: student,
			body: []byte(`{"title":"x","message":"y","date":"2024-03-08"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "missing message", method: http.MethodPost, path: "/v1/notices", token: teacher,
			body: []byte(`{"title":"x","message":"   ","date":"2024-03-08"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"message":"this field is required"}`),
		},
		{
			name: "unknown category", method: http.MethodPost, path: "/v1/notices", token: teacher,
			body: []byte(`{"title":"x","message":"y","type":"fyi","date":"2024-03-08"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"type":"type must be info or urgent"}`),
		},
		{
			name: "students may not edit", method: http.MethodPut, path: path, token: student,
			body: []byte(`{"type":"urgent"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "blank message", method: http.MethodPut, path: path, token: teacher,
			body: []byte(`{"message":"   "}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "escalate", method: http.MethodPut, path: path, token: teacher,
			body: []byte(`{"type":"urgent"}`), wantCode: http.StatusOK,
			wantData: marshalObj(t, MutationResponse{Item: urgent, SyncStatus: core.LocalOnly, Message: "Saved locally; remote sync not configured."}),
		},
		{
			name: "update unknown", method: http.MethodPut, path: "/v1/notices/nope", token: teacher,
			body: []byte(`{"type":"urgent"}`), wantCode: http.StatusNotFound,
		},
		{name: "students may not delete", method: http.MethodDelete, path: path, token: student, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "delete", method: http.MethodDelete, path: path, token: teacher, wantCode: http.StatusOK},
		{name: "delete again", method: http.MethodDelete, path: path, token: teacher, wantCode: http.StatusOK},
		{name: "empty", path: "/v1/notices", token: student, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})
}
