package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/teslashibe/gridscout/internal/log"
	"github.com/teslashibe/gridscout/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.Encoding != tts.EncodingMP3 {
			t.Errorf("expected MP3, got %s", result.Format.Encoding)
		}
	})

	t.Run("Stream reads to EOF", func(t *testing.T) {
		stream, err := mock.Stream(ctx, "Test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()

		data, err := io.ReadAll(stream)
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if len(data) != 16 {
			t.Errorf("expected 16 bytes, got %d", len(data))
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
		if last := mock.LastCall(); last == nil || last.Method != "Stream" || last.Text != "Test" {
			t.Errorf("unexpected last call: %+v", last)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if _, err := mock.Stream(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(ctx); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
}

func TestElevenLabsStream(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x01}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/"+tts.DefaultVoiceID+"/stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "mp3_44100_128" {
			t.Errorf("output_format = %q", got)
		}
		if got := r.Header.Get("xi-api-key"); got != "el-key" {
			t.Errorf("xi-api-key = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "audio/mpeg" {
			t.Errorf("Accept = %q", got)
		}

		var body struct {
			Text    string `json:"text"`
			ModelID string `json:"model_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Text != "Letter: C" {
			t.Errorf("text = %q", body.Text)
		}
		if body.ModelID != tts.ModelFlashV2_5 {
			t.Errorf("model_id = %q", body.ModelID)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer server.Close()

	provider, err := tts.NewElevenLabs(
		tts.WithAPIKey("el-key"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer provider.Close()

	stream, err := provider.Stream(context.Background(), "Letter: C")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("audio = %x, want %x", got, audio)
	}
	if stream.Format().SampleRate != 44100 {
		t.Errorf("sample rate = %d", stream.Format().SampleRate)
	}
}

func TestElevenLabsError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("bad"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)

	_, err := provider.Synthesize(context.Background(), "hello")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Invalid API key" || apiErr.Code != "invalid_api_key" {
		t.Errorf("unexpected error fields: %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single request, got %d", hits.Load())
	}
}

func TestAPIErrorQuota(t *testing.T) {
	quota := &tts.APIError{StatusCode: 401, Code: "quota_exceeded"}
	if !quota.IsQuotaExceeded() || quota.IsUnauthorized() {
		t.Errorf("quota error misclassified: %+v", quota)
	}
	if quota.IsRetryable() {
		t.Error("quota error should not be retried")
	}

	key := &tts.APIError{StatusCode: 401, Code: "invalid_api_key"}
	if key.IsQuotaExceeded() || !key.IsUnauthorized() {
		t.Errorf("key error misclassified: %+v", key)
	}
}

func TestElevenLabsRetryOnServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("mp3"))
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(1, 0),
		tts.WithLogger(log.Discard()),
	)

	result, err := provider.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != "mp3" {
		t.Errorf("audio = %q", result.Audio)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestElevenLabsVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"voices":[
			{"voice_id":"ESFCSGXf29OXVudtb0W7","name":"Scout","category":"cloned","labels":{"accent":"american"}},
			{"voice_id":"21m00Tcm4TlvDq8ikWAM","name":"Rachel","category":"premade"}
		]}`))
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)

	voices, err := provider.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].Name != "Scout" || voices[0].Labels["accent"] != "american" {
		t.Errorf("unexpected first voice: %+v", voices[0])
	}
	if s := voices[1].String(); s != "21m00Tcm4TlvDq8ikWAM  Rachel (premade)" {
		t.Errorf("String() = %q", s)
	}
}

func TestElevenLabsConfig(t *testing.T) {
	if _, err := tts.NewElevenLabs(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	provider, err := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithVoice("Rachel"))
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	if provider.VoiceID() != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("preset not resolved: %s", provider.VoiceID())
	}

	if _, err := provider.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != tts.ModelTTS1 || body["voice"] != tts.VoiceShimmer || body["response_format"] != "mp3" {
			t.Errorf("unexpected body: %v", body)
		}

		w.Write([]byte("ID3"))
	}))
	defer server.Close()

	provider, err := tts.NewOpenAI(
		tts.WithAPIKey("sk-test"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	result, err := provider.Synthesize(context.Background(), "Letter: A")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != "ID3" {
		t.Errorf("audio = %q", result.Audio)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	first := errors.New("first down")
	second := errors.New("second down")

	t.Run("falls back", func(t *testing.T) {
		backup := tts.NewMock()
		chain, err := tts.NewChain(log.Discard(), tts.WithError(first), backup)
		if err != nil {
			t.Fatalf("NewChain: %v", err)
		}

		stream, err := chain.Stream(ctx, "hi")
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		stream.Close()

		if backup.CallCount("Stream") != 1 {
			t.Error("backup provider was not used")
		}
	})

	t.Run("all fail", func(t *testing.T) {
		chain, _ := tts.NewChain(log.Discard(), tts.WithError(first), tts.WithError(second))

		_, err := chain.Synthesize(ctx, "hi")

		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) {
			t.Fatalf("expected ChainError, got %v", err)
		}
		if !errors.Is(err, first) || !errors.Is(err, second) {
			t.Errorf("chain error should wrap both failures: %v", err)
		}
		if chain.Health(ctx) == nil {
			t.Error("expected unhealthy chain")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})
}

func TestEncoding(t *testing.T) {
	tests := []struct {
		enc  tts.Encoding
		pcm  bool
		rate int
		mime string
	}{
		{tts.EncodingMP3, false, 44100, "audio/mpeg"},
		{tts.EncodingPCM24, true, 24000, "audio/pcm"},
		{tts.EncodingPCM16, true, 16000, "audio/pcm"},
		{tts.EncodingULaw, false, 8000, "audio/basic"},
	}
	for _, tt := range tests {
		if tt.enc.IsPCM() != tt.pcm {
			t.Errorf("%s IsPCM = %v", tt.enc, tt.enc.IsPCM())
		}
		if got := tts.SampleRateFromEncoding(tt.enc); got != tt.rate {
			t.Errorf("%s rate = %d, want %d", tt.enc, got, tt.rate)
		}
		if tt.enc.MIME() != tt.mime {
			t.Errorf("%s MIME = %s", tt.enc, tt.enc.MIME())
		}
	}
}
