package engines

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiEngine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	engine, err := NewGeminiEngine(GeminiConfig{
		APIKey:            "test-key",
		BaseURL:           srv.URL + "/v1beta/",
		RequestsPerMinute: 6000,
	})
	if err != nil {
		t.Fatalf("NewGeminiEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestGeminiEngine_NewGeminiEngine(t *testing.T) {
	tests := []struct {
		name        string
		config      GeminiConfig
		expectError bool
	}{
		{"missing key", GeminiConfig{}, true},
		{"blank key", GeminiConfig{APIKey: "  "}, true},
		{"defaults", GeminiConfig{APIKey: "k"}, false},
		{"custom model", GeminiConfig{APIKey: "k", Model: "gemini-2.5-pro-preview-tts", Timeout: time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewGeminiEngine(tt.config)
			if tt.expectError {
				if !errors.Is(err, ErrMissingAPIKey) {
					t.Errorf("expected ErrMissingAPIKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := engine.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestGeminiEngine_RequestSynthesis(t *testing.T) {
	var got struct {
		path   string
		key    string
		ctype  string
		body   geminiRequest
		method string
	}

	engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		got.ctype = r.Header.Get("Content-Type")
		got.method = r.Method
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got.body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"6AMY/A=="}}]}}]}`)
	})

	resp, err := engine.RequestSynthesis(context.Background(), "say this", "Puck")
	if err != nil {
		t.Fatalf("RequestSynthesis failed: %v", err)
	}
	if resp == nil || resp.Data != "6AMY/A==" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.MIMEType != "audio/L16;codec=pcm;rate=24000" {
		t.Errorf("MIMEType = %q", resp.MIMEType)
	}

	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if got.path != "/v1beta/models/gemini-2.5-flash-preview-tts:generateContent" {
		t.Errorf("path = %s", got.path)
	}
	if got.key != "test-key" {
		t.Errorf("api key header = %q", got.key)
	}
	if got.ctype != "application/json" {
		t.Errorf("content type = %q", got.ctype)
	}
	if len(got.body.Contents) != 1 || got.body.Contents[0].Parts[0].Text != "say this" {
		t.Errorf("contents = %+v", got.body.Contents)
	}
	if m := got.body.GenerationConfig.ResponseModalities; len(m) != 1 || m[0] != "AUDIO" {
		t.Errorf("modalities = %v", m)
	}
	if got.body.GenerationConfig.SpeechConfig == nil ||
		got.body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" {
		t.Errorf("speech config = %+v", got.body.GenerationConfig.SpeechConfig)
	}
}

func TestGeminiEngine_DefaultVoice(t *testing.T) {
	var voice string
	engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var body geminiRequest
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		voice = body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName
		io.WriteString(w, `{"candidates":[]}`)
	})

	if _, err := engine.RequestSynthesis(context.Background(), "hi", ""); err != nil {
		t.Fatalf("RequestSynthesis failed: %v", err)
	}
	if voice != DefaultVoice {
		t.Errorf("voice = %q, want %q", voice, DefaultVoice)
	}
}

func TestGeminiEngine_NoAudio(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"text only", `{"candidates":[{"content":{"parts":[{"text":"I cannot do that"}]}}]}`},
		{"empty inline data", `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16","data":""}}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			resp, err := engine.RequestSynthesis(context.Background(), "hi", "Kore")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp != nil {
				t.Errorf("expected nil response, got %+v", resp)
			}
		})
	}
}

func TestGeminiEngine_SkipsNonAudioParts(t *testing.T) {
	engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"audio/L16","data":"AAAA"}}]}}]}`)
	})
	resp, err := engine.RequestSynthesis(context.Background(), "hi", "Kore")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil || resp.Data != "AAAA" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGeminiEngine_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`, "Resource has been exhausted"},
		{"auth", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`, "status 403"},
		{"plain body", http.StatusBadGateway, "upstream down", "upstream down"},
		{"error on 200", http.StatusOK, `{"error":{"code":400,"message":"bad voice"}}`, "bad voice"},
		{"garbage", http.StatusOK, `not json`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := engine.RequestSynthesis(context.Background(), "hi", "Kore")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q missing %q", err, tt.contains)
			}
		})
	}
}

func TestGeminiEngine_ContextCanceled(t *testing.T) {
	engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.RequestSynthesis(ctx, "hi", "Kore")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGeminiEngine_Closed(t *testing.T) {
	engine := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {})
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := engine.RequestSynthesis(context.Background(), "hi", "Kore"); err == nil {
		t.Error("expected error after Close")
	}
}

func TestGeminiEngine_GetInfo(t *testing.T) {
	engine, _ := NewGeminiEngine(GeminiConfig{APIKey: "k"})
	info := engine.GetInfo()
	if info.Name != "gemini" || info.Model != DefaultGeminiModel {
		t.Errorf("info = %+v", info)
	}
	if info.SampleRate != 24000 || info.Channels != 1 || info.BitDepth != 16 || !info.IsOnline {
		t.Errorf("info = %+v", info)
	}
}

func TestErrorMessageTruncates(t *testing.T) {
	long := strings.Repeat("x", maxErrorBody+100)
	got := errorMessage([]byte(long))
	if len(got) != maxErrorBody+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("errorMessage length = %d", len(got))
	}
}
