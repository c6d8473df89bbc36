package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/access"
	"github.com/trezcool/classboard/core/notice"
	"github.com/trezcool/classboard/core/work"
	eventsvc "github.com/trezcool/classboard/services/events"
	logsvc "github.com/trezcool/classboard/services/logger"
	"github.com/trezcool/classboard/storage/kv"
	localdb "github.com/trezcool/classboard/storage/local"
)

var errMissingTokenBody = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	conf    *core.Config
	workSvc *work.Service
	hub     *eventsvc.Hub
	tokens  tokenAuth
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()

	db := localdb.New(kv.NewMemory(), conf.Storage.Namespace, logger)
	workSvc := work.NewService(
		localdb.NewWorkRepository(db),
		localdb.NewCompletionRepository(db),
		work.EmbeddedFiles{MaxDimension: conf.Attachments.MaxDimension, JPEGQuality: conf.Attachments.JPEGQuality},
	)
	noticeSvc := notice.NewService(localdb.NewNoticeRepository(db))

	validate, translator := core.NewValidator()
	work.InitValidators(validate, translator)
	notice.InitValidators(validate, translator)

	hub := eventsvc.NewHub(8)
	t.Cleanup(hub.Close)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		WorkSvc:    workSvc,
		NoticeSvc:  noticeSvc,
		Gate:       access.NewGate(conf.Access),
		Hub:        hub,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{
		Server:  srv,
		conf:    conf,
		workSvc: workSvc,
		hub:     hub,
		tokens:  newTokenAuth(conf.AppName, conf.SecretKey),
	}
}

func (app *testApp) token(t *testing.T, role access.Role) string {
	t.Helper()
	token, err := app.tokens.generate(role)
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

type testFile struct {
	name, mimeType string
	data           []byte
}

func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, files ...testFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart(): %v", err)
		}
		_, _ = part.Write(f.data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(newAuthRequest(method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
