package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/api"
	"github.com/linesmerrill/cfs-intake-api/blobstore"
	"github.com/linesmerrill/cfs-intake-api/cfs"
	"github.com/linesmerrill/cfs-intake-api/config"
	"github.com/linesmerrill/cfs-intake-api/databases"
	"github.com/linesmerrill/cfs-intake-api/invalidation"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

type nopNotifier struct{}

func (nopNotifier) Notify(int64, notify.Template) {}

type testApp struct {
	*App
	mem    *databases.MemoryStore
	blobs  *blobstore.Memory
	issuer *api.TokenIssuer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		App:    &App{Config: config.Config{QueryTimeout: time.Second}},
		mem:    databases.NewMemory(),
		blobs:  blobstore.NewMemory(),
		issuer: api.NewTokenIssuer("test-secret", time.Hour),
	}
	ta.Hub = invalidation.NewHub(zap.NewNop())
	ta.Service = cfs.NewService(ta.mem, ta.blobs, nopNotifier{}, ta.Hub, zap.NewNop())
	ta.Guard = api.NewGuard(nil, ta.issuer)
	ta.initializeRoutes()
	return ta
}

func (ta *testApp) bearer(t *testing.T, org *int64, roles ...string) string {
	t.Helper()
	token, _, err := ta.issuer.Issue(100, org, roles)
	require.NoError(t, err)
	return "Bearer " + token
}

func (ta *testApp) do(method, path, auth string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	ta.Router.ServeHTTP(rr, req)
	return rr
}

func (ta *testApp) doJSON(method, path, auth, body string) *httptest.ResponseRecorder {
	return ta.do(method, path, auth, strings.NewReader(body), "application/json")
}

func orgID(v int64) *int64 { return &v }

func TestHealthCheckHandler(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/health", "", nil, "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"alive": true}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateAndReadCall(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleCaseworker)

	rr := ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"id": 1}`, rr.Body.String())

	rr = ta.do("GET", "/api/v1/cfs/1", auth, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var detail struct {
		Call struct {
			ReportNumber string `json:"reportNumber"`
			Status       string `json:"status"`
		} `json:"call"`
		Timeline    []json.RawMessage `json:"timeline"`
		Attachments []json.RawMessage `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.NotEmpty(t, detail.Call.ReportNumber)
	assert.Equal(t, "received", detail.Call.Status)
	assert.Len(t, detail.Timeline, 1)
	assert.NotNil(t, detail.Attachments)
}

func TestCreateCallValidation(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.doJSON("POST", "/api/v1/cfs", ta.bearer(t, orgID(1), access.RoleIntake), `{"narrative": "short"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "narrative")
}

func TestCreateCallBadJSON(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.doJSON("POST", "/api/v1/cfs", ta.bearer(t, orgID(1), access.RoleIntake), `{"narrative":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateCallWithoutOrganization(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.doJSON("POST", "/api/v1/cfs", ta.bearer(t, nil, access.RoleIntake), `{"narrative": "Family needs food support this week"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnauthenticatedRequest(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.doJSON("POST", "/api/v1/cfs", "", `{"narrative": "Family needs food support this week"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTriageForbiddenForIntakeRole(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleIntake)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	rr := ta.doJSON("POST", "/api/v1/cfs/1/triage", auth, `{"priority": "urgent"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTriageAndStatus(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleCaseworker)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	rr := ta.doJSON("POST", "/api/v1/cfs/1/triage", auth, `{"priority": "urgent", "urgency_indicators": "children, no food"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message": "Call triaged"}`, rr.Body.String())

	rr = ta.doJSON("PUT", "/api/v1/cfs/1/status", auth, `{"status": "verified"}`)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestCallNotFound(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/api/v1/cfs/999", ta.bearer(t, orgID(1), access.RoleCaseworker), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCallOtherOrganizationNotFound(t *testing.T) {
	ta := newTestApp(t)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", ta.bearer(t, orgID(1), access.RoleCaseworker),
		`{"narrative": "Family needs food support this week"}`).Code)

	rr := ta.do("GET", "/api/v1/cfs/1", ta.bearer(t, orgID(2), access.RoleOrgAdmin), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBadPathID(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/api/v1/cfs/abc", ta.bearer(t, orgID(1), access.RoleCaseworker), nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDuplicateOfItselfIsConflict(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleCaseworker)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	rr := ta.doJSON("POST", "/api/v1/cfs/1/duplicate", auth, `{"duplicate_of_id": 1}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "A report cannot be a duplicate of itself.")
}

func TestSharingAndTracking(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleOrgAdmin)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	rr := ta.doJSON("PUT", "/api/v1/cfs/1/org-access/2", auth, `{"access_level": "view"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// the granted organization can now read the call
	rr = ta.do("GET", "/api/v1/cfs/1", ta.bearer(t, orgID(2), access.RoleCaseworker), nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ta.do("DELETE", "/api/v1/cfs/1/org-access/2", auth, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ta.doJSON("PUT", "/api/v1/cfs/1/public-tracking", auth, `{"category": "food", "area": "Eastside"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["trackingCode"])

	rr = ta.do("DELETE", "/api/v1/cfs/1/public-tracking", auth, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func multipartBody(t *testing.T, fileName string, content []byte, notes string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("notes", notes))
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadAndDeleteAttachment(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleOrgAdmin)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	body, contentType := multipartBody(t, "lease agreement.pdf", []byte("%PDF-1.4 lease"), "signed copy")
	rr := ta.do("POST", "/api/v1/cfs/1/attachments", auth, body, contentType)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, 1, ta.blobs.Len())
	assert.Equal(t, 1, ta.mem.AttachmentCount(1))

	rr = ta.do("DELETE", "/api/v1/cfs/1/attachments/1", auth, nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, ta.blobs.Len())
	assert.Zero(t, ta.mem.AttachmentCount(1))
}

func TestUploadWithoutFile(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleOrgAdmin)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)

	body, contentType := multipartBody(t, "", nil, "no file here")
	rr := ta.do("POST", "/api/v1/cfs/1/attachments", auth, body, contentType)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"file"`)
}

func TestUploadMetadataFailureCleansUpBlob(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.bearer(t, orgID(1), access.RoleOrgAdmin)
	require.Equal(t, http.StatusCreated, ta.doJSON("POST", "/api/v1/cfs", auth, `{"narrative": "Family needs food support this week"}`).Code)
	ta.mem.FailInsertAttachment(errors.New("insert failed"))

	body, contentType := multipartBody(t, "photo.jpg", []byte("jpeg"), "")
	rr := ta.do("POST", "/api/v1/cfs/1/attachments", auth, body, contentType)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Zero(t, ta.blobs.Len())
}

type optedInProfile struct{}

func (optedInProfile) GetNotifyProfile(_ context.Context, id int64) (*models.NotifyProfile, error) {
	target := "reporter@example.com"
	return &models.NotifyProfile{CFSID: id, OptIn: true, Channel: models.ChannelEmail, Target: &target}, nil
}

func TestCloseDrainsNotificationsBeforeTransport(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, step)
	}

	sender := notify.SenderFunc(func(context.Context, notify.OutboundMessage) error {
		time.Sleep(20 * time.Millisecond)
		record("send")
		return nil
	})
	a := &App{}
	a.dispatcher = notify.NewDispatcher(optedInProfile{}, sender, zap.NewNop(), notify.Options{Workers: 1})
	a.closers = append(a.closers, a.closeDispatcher(func() error {
		record("close")
		return nil
	}))

	a.dispatcher.Notify(1, notify.Received())
	a.dispatcher.Notify(1, notify.Verified())
	a.Close()

	assert.Equal(t, []string{"send", "send", "close"}, order)
}
