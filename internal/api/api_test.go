package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/lexgest/internal/answer"
	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/config"
	"github.com/dgallion1/lexgest/internal/embedding"
	"github.com/dgallion1/lexgest/internal/generate"
	"github.com/dgallion1/lexgest/internal/index"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/dgallion1/lexgest/internal/store"
)

const (
	testKey = "secret"
	lawA    = "CHAPITRE I. - Dispositions générales\nSection 1. - Objet\n" +
		"Article 1. La présente loi protège les données à caractère personnel.\n" +
		"Article 2. Elle s'applique à tout traitement automatisé.\n"
	lawB = "CHAPITRE II. - Des formalités\nSection 1. - Déclaration\n" +
		"Article 18. Tout traitement fait l'objet d'une déclaration auprès de la Commission.\n"
	lawRights = "CHAPITRE III. - Des droits\nSection 1. - Accès\n" +
		"Article 62. Toute personne a un droit d'accès. Elle peut demander la rectification. " +
		"Elle peut s'opposer au traitement. Elle peut exiger l'effacement de ses données.\n"
)

type fakeGenerator struct{ prompt string }

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "Selon l'article 1, la loi protège les données.", nil
}

func (f *fakeGenerator) Model() string { return "fake" }

type fixture struct {
	srv  *Server
	orch *pipeline.Orchestrator
	gen  *fakeGenerator
}

func newFixture(t *testing.T, withChat bool) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ix, err := index.Open("")
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHash(128)
	stats := generate.NewLLMStats(time.Hour)
	in := pipeline.NewIngestor(st, emb, ix, stats, pipeline.IngestorConfig{
		Chunk:                chunker.DefaultConfig(),
		MaxConcurrentExtract: 2,
		MaxConcurrentEmbed:   2,
	}, log)
	orch := pipeline.NewOrchestrator(in, 1, 4, time.Hour, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	f := &fixture{orch: orch, gen: &fakeGenerator{}}
	var chat *answer.Router
	if withChat {
		// Zero thresholds route every retrieval to generation.
		chat = answer.NewRouter(emb, ix, f.gen, answer.Config{TopK: 3}, log)
	}
	cfg := config.Config{APIKey: testKey, MaxUploadBytes: 1 << 20, EmbeddingProvider: "hash", GenerationProvider: "fake"}
	f.srv = NewServer(orch, chat, stats, log, cfg)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func multipartFiles(t *testing.T, fields map[string]string, files ...[2]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		w, err := mw.CreateFormFile("files", f[0])
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(f[1]))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// ingest uploads files and waits for the job to finish.
func (f *fixture) ingest(t *testing.T, files ...[2]string) pipeline.JobSnapshot {
	t.Helper()
	body, ct := multipartFiles(t, nil, files...)
	rec := f.do(t, http.MethodPost, "/api/ingest", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := f.do(t, http.MethodGet, accepted.PollURL, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll: %d", rec.Code)
		}
		var snap pipeline.JobSnapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	f := newFixture(t, false)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/structure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestIngestThenBrowse(t *testing.T) {
	f := newFixture(t, false)

	if rec := f.do(t, http.MethodGet, "/api/structure", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before ingest, got %d", rec.Code)
	}

	snap := f.ingest(t, [2]string{"loi.txt", lawA}, [2]string{"titre2.txt", lawB})
	if snap.Status != pipeline.StatusCompleted || snap.Progress.Articles != 3 || snap.Progress.Indexed != 3 {
		t.Fatalf("unexpected job %+v", snap)
	}

	rec := f.do(t, http.MethodGet, "/api/structure", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("structure: %d", rec.Code)
	}
	body := rec.Body.String()
	first := strings.Index(body, "Chapitre I: Dispositions générales")
	second := strings.Index(body, "Chapitre II: Des formalités")
	if first < 0 || second < first {
		t.Errorf("expected both chapters in upload order, got %s", body)
	}

	rec = f.do(t, http.MethodGet, "/api/chunks", nil, "")
	var chunks []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &chunks); err != nil || len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d (%v)", len(chunks), err)
	}

	rec = f.do(t, http.MethodGet, "/api/documents", nil, "")
	if !strings.Contains(rec.Body.String(), "titre2.txt") {
		t.Errorf("expected manifest entry, got %s", rec.Body.String())
	}
}

func TestIngest_Rejections(t *testing.T) {
	f := newFixture(t, false)

	body, ct := multipartFiles(t, map[string]string{"force": "true"})
	if rec := f.do(t, http.MethodPost, "/api/ingest", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without files, got %d", rec.Code)
	}

	body, ct = multipartFiles(t, nil, [2]string{"virus.exe", "x"})
	if rec := f.do(t, http.MethodPost, "/api/ingest", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/api/ingest/missing/status", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestSegmentAndReindex(t *testing.T) {
	f := newFixture(t, false)
	if rec := f.do(t, http.MethodPost, "/api/segment", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before ingest, got %d", rec.Code)
	}
	f.ingest(t, [2]string{"loi.txt", lawA}, [2]string{"droits.txt", lawRights})

	rec := f.do(t, http.MethodPost, "/api/segment", strings.NewReader(`{"max_chunk_size": 0}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero chunk size, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/segment", strings.NewReader(`{"max_chunk_size": 120, "overlap": 20, "reindex": true}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("segment: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Chunks  chunker.Stats `json:"chunks"`
		Indexed int           `json:"indexed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Chunks.Chunks <= 3 || out.Indexed != out.Chunks.Chunks {
		t.Errorf("expected smaller chunks indexed, got %+v", out)
	}

	rec = f.do(t, http.MethodPost, "/api/reindex", strings.NewReader(`{"force_segmentation": true}`), "application/json")
	var res pipeline.Result
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &res) != nil || res.Indexed != 3 {
		t.Errorf("expected default re-segmentation to 3 chunks, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t, true)
	f.ingest(t, [2]string{"loi.txt", lawA})

	rec := f.do(t, http.MethodPost, "/api/chat", strings.NewReader(`{"message": "Que protège la loi ?"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body.String())
	}
	var resp answer.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Route != answer.RouteAnswered || len(resp.Sources) != 2 {
		t.Errorf("expected generated answer with 2 sources, got %+v", resp)
	}
	if !strings.Contains(rec.Body.String(), `"chapitre"`) {
		t.Errorf("expected chapitre key in sources, got %s", rec.Body.String())
	}
	if !strings.Contains(f.gen.prompt, "Référence 1:") {
		t.Errorf("expected numbered references in prompt, got %q", f.gen.prompt)
	}

	rec = f.do(t, http.MethodPost, "/api/chat", strings.NewReader(`{"message": "   "}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank question, got %d", rec.Code)
	}
}

func TestChat_NotConfigured(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPost, "/api/chat", strings.NewReader(`{"message": "bonjour"}`), "application/json")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	f := newFixture(t, false)
	f.ingest(t, [2]string{"loi.txt", lawA})
	rec := f.do(t, http.MethodGet, "/api/stats/llm", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"embed"`) {
		t.Errorf("expected embed latency in stats, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"loi.pdf":            "loi.pdf",
		"../../etc/passwd":   "passwd",
		`C:\docs\decret.pdf`: "decret.pdf",
		"":                   "unnamed",
		"a..b.txt":           "a_b.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
