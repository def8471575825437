package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/crack-api/internal/history"
	"github.com/Brownie44l1/crack-api/internal/verdict"
)

type recordingAnalyzer struct {
	paths   []string
	content []byte
	result  verdict.Verdict
}

func (a *recordingAnalyzer) Analyze(path string) verdict.Verdict {
	a.paths = append(a.paths, path)
	a.content, _ = os.ReadFile(path)
	return a.result
}

type readyStatus bool

func (s readyStatus) Ready() bool { return bool(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uploadRequest(t *testing.T, target, field, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyze_StagesAnalyzesAndCleansUp(t *testing.T) {
	uploadDir := t.TempDir()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	fake := &recordingAnalyzer{result: verdict.Classify(0.93)}
	h := NewHandler(fake, Options{UploadDir: uploadDir, History: store, Logger: quietLogger()})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, uploadRequest(t, "/analyze", "image", "../../wall crack.JPG", []byte("jpeg-bytes")))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	require.Equal(t, true, data["has_crack"])
	require.Equal(t, "93.00%", data["confidence"])
	require.Equal(t, "High", data["severity"])

	require.Len(t, fake.paths, 1)
	require.Equal(t, uploadDir, filepath.Dir(fake.paths[0]))
	require.Contains(t, filepath.Base(fake.paths[0]), "wall_crack.JPG")
	require.Equal(t, []byte("jpeg-bytes"), fake.content)

	_, err = os.Stat(fake.paths[0])
	require.ErrorIs(t, err, os.ErrNotExist)

	records, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "wall crack.JPG", records[0].Filename)
}

func TestAnalyze_APIPrefix(t *testing.T) {
	fake := &recordingAnalyzer{result: verdict.Failure(analyzerNotReady)}
	h := NewHandler(fake, Options{UploadDir: t.TempDir(), Logger: quietLogger()})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, uploadRequest(t, "/api/ai/analyze", "image", "slab.png", []byte("png")))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	require.Equal(t, false, data["has_crack"])
	require.Equal(t, analyzerNotReady, data["error"])
}

const analyzerNotReady = "AI Model not initialized. Please ensure the model is trained and saved."

func TestAnalyze_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		field string
		file  string
		want  string
	}{
		{"missing part", "photo", "wall.jpg", "No image part"},
		{"bad extension", "image", "wall.gif", "Invalid file type"},
		{"no extension", "image", "wall", "Invalid file type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &recordingAnalyzer{}
			h := NewHandler(fake, Options{UploadDir: t.TempDir(), Logger: quietLogger()})

			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, uploadRequest(t, "/analyze", tt.field, tt.file, []byte("data")))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.want, decode(t, rec)["error"])
			require.Empty(t, fake.paths)
		})
	}
}

func TestAnalyze_EmptyFilename(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename=""`)
	header.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	fake := &recordingAnalyzer{}
	h := NewHandler(fake, Options{UploadDir: t.TempDir(), Logger: quietLogger()})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No selected file", decode(t, rec)["error"])
	require.Empty(t, fake.paths)
}

func TestAnalyze_NotMultipart(t *testing.T) {
	h := NewHandler(&recordingAnalyzer{}, Options{UploadDir: t.TempDir(), Logger: quietLogger()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := NewHandler(&recordingAnalyzer{}, Options{Status: readyStatus(true), Logger: quietLogger()})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "AI Service is running", body["status"])
	require.Equal(t, true, body["model_loaded"])
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	h := NewHandler(&recordingAnalyzer{}, Options{Logger: quietLogger()})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHistory(t *testing.T) {
	h := NewHandler(&recordingAnalyzer{}, Options{Logger: quietLogger()})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Record(context.Background(), "a.png", verdict.Classify(0.55)))

	h = NewHandler(&recordingAnalyzer{}, Options{History: store, Logger: quietLogger()})

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=0", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "Low", data[0].(map[string]any)["severity"])
}

func TestSecureFilename(t *testing.T) {
	require.Equal(t, "crack.png", secureFilename("crack.png"))
	require.Equal(t, "passwd", secureFilename("../../etc/passwd"))
	require.Equal(t, "my_wall__1_.jpg", secureFilename(`C:\photos\my wall (1).jpg`))
	require.Equal(t, "hidden.png", secureFilename(".hidden.png"))
}
