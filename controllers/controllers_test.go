package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"Attentus/clients/notegen"
	"Attentus/config/authorization"
	"Attentus/config/jwt"
	"Attentus/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	jwt.Init("controller-test-secret", time.Hour)
	os.Exit(m.Run())
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *memStore
	svc    *services.Services
}

func newHarness(t *testing.T) *harness {
	store := newMemStore()
	svc := &services.Services{
		Doctors:      store,
		Patients:     store,
		Appointments: store,
		Chats:        store,
		Blobs:        &memBlobs{objects: map[string]int{}},
		Transcriber: transcribeFunc(func(context.Context, string) (string, error) {
			return "DOCTOR: How are you?\nPATIENT: Tired.", nil
		}),
		Notes: generateFunc(func(context.Context, notegen.Request) (string, error) {
			return "Assessment: fatigue", nil
		}),
		MaxAudioBytes:   1 << 20,
		PipelineTimeout: time.Minute,
	}

	r := gin.New()
	api := r.Group("/api")
	Auth(api, svc)
	private := api.Group("", authorization.JWTAuth(svc.Doctors))
	Doctor(private, svc)
	Patient(private, svc)
	Appointment(private, svc)
	Chat(private, svc)
	return &harness{t: t, router: r, store: store, svc: svc}
}

func (h *harness) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (h *harness) sendJSON(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(h.t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, token)
}

func (h *harness) multipart(path, token string, fields map[string]string, fileField, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(h.t, err)
		_, err = fw.Write(content)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req, token)
}

func (h *harness) signup(first, email string) (string, string) {
	h.t.Helper()
	w, env := h.multipart("/api/auth/signup", "", map[string]string{
		"firstName":  first,
		"lastName":   "Doe",
		"email":      email,
		"password":   "Secret@1",
		"profession": "GP",
		"template":   "S:\nO:\nA:\nP:",
	}, "", "", nil)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Doctor struct {
			ID string `json:"_id"`
		} `json:"doctor"`
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	return data.Doctor.ID, data.Token
}

func idOf(t *testing.T, env envelope) string {
	t.Helper()
	var v struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v.ID
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"failed"`)
			assert.Contains(t, w.Body.String(), `"kind":"Unauthenticated"`)
		})
	}
}

func TestSignupLoginAndMe(t *testing.T) {
	h := newHarness(t)
	id, token := h.signup("Jane", "jane@clinic.test")
	assert.NotEmpty(t, token)

	subject, err := jwt.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, subject)

	w, env := h.sendJSON(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@clinic.test", "password": "Secret@1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotContains(t, string(env.Data), "password")

	w, env = h.sendJSON(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@clinic.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "failed", env.Status)

	w, _ = h.sendJSON(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@clinic.test"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors/me", nil)
	w, env = h.do(req, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, idOf(t, env))
	assert.NotContains(t, string(env.Data), "password")
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	h := newHarness(t)
	w, env := h.multipart("/api/auth/signup", "", map[string]string{
		"name":       "Jane Doe",
		"email":      "jane@clinic.test",
		"password":   "weak",
		"profession": "GP",
		"template":   "SOAP",
	}, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", env.Kind)
}

func TestMalformedEmailsAreRejected(t *testing.T) {
	h := newHarness(t)
	w, env := h.multipart("/api/auth/signup", "", map[string]string{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"email":      "jane-at-clinic",
		"password":   "Secret@1",
		"profession": "GP",
		"template":   "SOAP",
	}, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", env.Kind)

	_, token := h.signup("Jane", "jane@clinic.test")
	w, env = h.sendJSON(http.MethodPost, "/api/patients", token, map[string]interface{}{
		"firstName":   "Alan",
		"lastName":    "Turing",
		"dateOfBirth": "1980-06-23",
		"sex":         "Male",
		"contactInfo": map[string]string{"phone": "555-0100", "email": "not an email"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", env.Kind)

	w, _ = h.sendJSON(http.MethodPost, "/api/patients", token, map[string]interface{}{
		"firstName":   "Alan",
		"lastName":    "Turing",
		"dateOfBirth": "1980-06-23",
		"sex":         "Male",
		"contactInfo": map[string]string{"phone": "555-0100"},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	_, token := h.signup("Jane", "jane@clinic.test")

	w, _ := h.sendJSON(http.MethodPost, "/api/auth/reset-password", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.sendJSON(http.MethodPost, "/api/auth/reset-password", token, map[string]string{
		"currentPassword": "Secret@1",
		"newPassword":     "Better#22",
		"confirmPassword": "Better#22",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.sendJSON(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@clinic.test", "password": "Better#22"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAppointmentRecordingFlow(t *testing.T) {
	h := newHarness(t)
	_, token := h.signup("Jane", "jane@clinic.test")
	_, otherToken := h.signup("John", "john@clinic.test")

	w, env := h.sendJSON(http.MethodPost, "/api/patients", token, map[string]interface{}{
		"firstName":   "Alan",
		"lastName":    "Turing",
		"dateOfBirth": "1980-06-23",
		"sex":         "Male",
		"weight":      70,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	patientID := idOf(t, env)

	w, env = h.sendJSON(http.MethodPost, "/api/appointments", token, map[string]string{
		"patientId": patientID,
		"title":     "Annual Checkup",
		"date":      "2025-03-01T10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	appointmentID := idOf(t, env)
	assert.Contains(t, string(env.Data), `"status":"Pending"`)

	path := "/api/appointments/" + appointmentID
	w, env = h.multipart(path+"/record", token, nil, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", env.Kind)

	w, _ = h.multipart(path+"/record", otherToken, nil, "audio", "visit.wav", []byte("RIFF"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = h.multipart(path+"/record", token, map[string]string{"weight": "72.5", "height": "n/a"}, "audio", "visit.wav", []byte("RIFF"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var recorded struct {
		RecordingURL string   `json:"recordingUrl"`
		Transcript   string   `json:"transcript"`
		ConsultNote  string   `json:"consultNote"`
		Status       string   `json:"status"`
		Weight       *float64 `json:"weight"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recorded))
	assert.True(t, strings.HasPrefix(recorded.RecordingURL, "https://storage.googleapis.com/test-bucket/recordings/"))
	assert.NotEmpty(t, recorded.Transcript)
	assert.Equal(t, "Assessment: fatigue", recorded.ConsultNote)
	assert.Equal(t, "Completed", recorded.Status)
	require.NotNil(t, recorded.Weight)
	assert.Equal(t, 72.5, *recorded.Weight)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w, _ = h.do(req, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	w, _ = h.do(req, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, h.store.appointments, mustObjectID(t, appointmentID))
}

func TestRecordRejectsOversizedAudio(t *testing.T) {
	h := newHarness(t)
	h.svc.MaxAudioBytes = 8
	_, token := h.signup("Jane", "jane@clinic.test")

	w, env := h.multipart("/api/appointments/"+strings.Repeat("a", 24)+"/record", token, nil, "audio", "big.wav", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", env.Kind)
}

func TestChatFlow(t *testing.T) {
	h := newHarness(t)
	janeID, jane := h.signup("Jane", "jane@clinic.test")
	johnID, john := h.signup("John", "john@clinic.test")
	_, outsider := h.signup("Mary", "mary@clinic.test")

	w, env := h.sendJSON(http.MethodPost, "/api/chats", jane, map[string]string{"doctorId": johnID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	chatID := idOf(t, env)

	w, env = h.sendJSON(http.MethodPost, "/api/chats", john, map[string]string{"doctorId": janeID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chatID, idOf(t, env))

	w, _ = h.sendJSON(http.MethodPost, "/api/chats", jane, map[string]string{"doctorId": janeID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.sendJSON(http.MethodPost, "/api/chats/"+chatID+"/message", jane, map[string]string{"content": "Lab results are in"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Lab results are in")

	w, _ = h.sendJSON(http.MethodPost, "/api/chats/"+chatID+"/message", jane, map[string]string{"content": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chats/"+chatID, nil)
	w, _ = h.do(req, outsider)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	w, env = h.do(req, john)
	require.Equal(t, http.StatusOK, w.Code)
	var chats []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &chats))
	assert.Len(t, chats, 1)
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
