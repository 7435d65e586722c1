package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/longscribe/backend/internal/auth"
	"github.com/longscribe/backend/internal/config"
	"github.com/longscribe/backend/internal/db"
	"github.com/longscribe/backend/internal/job"
)

func testServer(t *testing.T) (*httptest.Server, *db.Database) {
	t.Helper()

	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Server.UploadPath = t.TempDir()
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	queue := job.NewJobQueue(database.DB())
	t.Cleanup(queue.Stop)

	server := httptest.NewServer(NewRouter(database, jwtService, cfg, queue))
	t.Cleanup(server.Close)
	return server, database
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	body := bytes.NewBufferString(`{"username":"admin","password":"secret"}`)
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var lr struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatal(err)
	}
	return lr.Token
}

func authedRequest(t *testing.T, method, url, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	server, _ := testServer(t)
	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestTranscribeRequiresAuth(t *testing.T) {
	server, _ := testServer(t)
	resp, err := http.Post(server.URL+"/api/transcribe", "application/json",
		bytes.NewBufferString(`{"file_path":"/tmp/x.wav"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSubmitAndFetchJob(t *testing.T) {
	server, _ := testServer(t)
	token := login(t, server)

	src := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"file_path": src,
		"language":  "en",
		"strategy":  "time",
	})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	var submitted job.Job
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatal(err)
	}
	if submitted.ID == "" || submitted.Type != job.JobTranscribe {
		t.Errorf("submitted job = %+v", submitted)
	}

	get := authedRequest(t, "GET", server.URL+"/api/jobs/"+submitted.ID, token, nil)
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", get.StatusCode)
	}

	var fetched job.Job
	if err := json.NewDecoder(get.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ID != submitted.ID || fetched.FilePath != src {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestSubmitAppliesSettingsDefaults(t *testing.T) {
	server, database := testServer(t)
	token := login(t, server)

	for key, value := range map[string]string{
		"default_language": "de",
		"default_strategy": "silence",
		"default_dialect":  "vtt",
	} {
		if err := database.SetSetting(key, value); err != nil {
			t.Fatal(err)
		}
	}

	src := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(src, []byte("RIFF"), 0o644)

	// Submitter sets a language but leaves strategy and dialect empty.
	body, _ := json.Marshal(map[string]interface{}{
		"file_path": src,
		"language":  "en",
	})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	var submitted job.Job
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatal(err)
	}
	var params job.TranscribeParams
	if err := json.Unmarshal(submitted.Params, &params); err != nil {
		t.Fatal(err)
	}
	if params.Language != "en" {
		t.Errorf("language = %q, submitter's choice must win over the default", params.Language)
	}
	if params.Strategy != "silence" || params.Dialect != "vtt" {
		t.Errorf("params = %+v, want admin defaults filled in", params)
	}
}

func TestSubmitAcceptsCallerJobID(t *testing.T) {
	server, _ := testServer(t)
	token := login(t, server)

	src := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(src, []byte("RIFF"), 0o644)

	body, _ := json.Marshal(map[string]interface{}{
		"file_path": src,
		"job_id":    "caller-tracking-7",
	})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	var submitted job.Job
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatal(err)
	}
	var params job.TranscribeParams
	if err := json.Unmarshal(submitted.Params, &params); err != nil {
		t.Fatal(err)
	}
	if params.JobID != "caller-tracking-7" {
		t.Errorf("job_id = %q, want the caller's ID preserved", params.JobID)
	}
}

func TestSubmitRejectsBadStrategy(t *testing.T) {
	server, _ := testServer(t)
	token := login(t, server)

	src := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(src, []byte("RIFF"), 0o644)

	body, _ := json.Marshal(map[string]interface{}{
		"file_path": src,
		"strategy":  "psychic",
	})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	server, _ := testServer(t)
	token := login(t, server)

	body, _ := json.Marshal(map[string]interface{}{
		"file_path": "/nonexistent/audio.wav",
	})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestResultUnavailableWhilePending(t *testing.T) {
	server, _ := testServer(t)
	token := login(t, server)

	src := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(src, []byte("RIFF"), 0o644)

	body, _ := json.Marshal(map[string]interface{}{"file_path": src})
	resp := authedRequest(t, "POST", server.URL+"/api/transcribe", token, body)
	var submitted job.Job
	json.NewDecoder(resp.Body).Decode(&submitted)
	resp.Body.Close()

	res := authedRequest(t, "GET", server.URL+"/api/jobs/"+submitted.ID+"/result", token, nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Errorf("result status = %d, want 409", res.StatusCode)
	}
}
