package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav data"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClientRecognize(t *testing.T) {
	var gotLanguage string
	var gotFile bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recognize" {
			t.Errorf("path = %s, want /recognize", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotLanguage = r.FormValue("language")
		_, _, err := r.FormFile("file")
		gotFile = err == nil
		json.NewEncoder(w).Encode(RecognizeResult{
			Language: "en",
			Segments: []RawSegment{{Start: 0, End: 2.5, Text: "hello"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	result, err := c.Recognize(context.Background(), writeTestWAV(t), "en")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !gotFile {
		t.Error("server did not receive file part")
	}
	if gotLanguage != "en" {
		t.Errorf("language field = %q, want en", gotLanguage)
	}
	if result.Language != "en" || len(result.Segments) != 1 || result.Segments[0].Text != "hello" {
		t.Errorf("result = %+v", result)
	}
}

func TestClientRecognizeOmitsEmptyLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("language field should be absent for auto-detect")
		}
		json.NewEncoder(w).Encode(RecognizeResult{Language: "de"})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).Recognize(context.Background(), writeTestWAV(t), "")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Language != "de" {
		t.Errorf("detected language = %q, want de", result.Language)
	}
}

func TestClientAlign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		var segments []RawSegment
		if err := json.Unmarshal([]byte(r.FormValue("segments")), &segments); err != nil {
			t.Fatalf("segments field: %v", err)
		}
		if len(segments) != 1 || segments[0].Text != "hello" {
			t.Errorf("segments = %+v", segments)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"segments": []RawSegment{{Start: 0, End: 2, Text: "hello"}},
		})
	}))
	defer server.Close()

	got, err := NewClient(server.URL).Align(context.Background(), writeTestWAV(t), "en",
		[]RawSegment{{Start: 0, End: 2.5, Text: "hello"}})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(got) != 1 || got[0].End != 2 {
		t.Errorf("got = %+v", got)
	}
}

func TestClientDiarizeForwardsHFToken(t *testing.T) {
	var gotToken string
	var gotMin string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		gotToken = r.FormValue("hf_token")
		gotMin = r.FormValue("min_speakers")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"turns": []SpeakerTurn{{Start: 0, End: 5, Speaker: "SPEAKER_00"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.SetHFToken("hf_secret")
	turns, err := c.Diarize(context.Background(), writeTestWAV(t), DiarizeOptions{MinSpeakers: 2})
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if gotToken != "hf_secret" {
		t.Errorf("hf_token field = %q, want the configured token", gotToken)
	}
	if gotMin != "2" {
		t.Errorf("min_speakers field = %q, want 2", gotMin)
	}
	if len(turns) != 1 || turns[0].Speaker != "SPEAKER_00" {
		t.Errorf("turns = %+v", turns)
	}
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model load failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Recognize(context.Background(), writeTestWAV(t), "")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHandleExclusive(t *testing.T) {
	h := NewHandle(NewClient("http://localhost:0"))
	if err := h.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.Acquire(ctx); err == nil {
		t.Fatal("second acquire should block until release")
	}

	h.Release()
	if err := h.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	h.Release()
}

func TestHandleUnloadSwallowsErrors(t *testing.T) {
	// No server listening; unload must not panic or propagate the error.
	h := NewHandle(NewClient("http://127.0.0.1:0"))
	h.UnloadRecognizer(context.Background())
	h.UnloadAligner(context.Background())
	h.UnloadDiarizer(context.Background())
}
