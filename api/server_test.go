package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	build "shorts-doc-pipeline/05_build"
	"shorts-doc-pipeline/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	got types.BuildRequest
	res *build.Result
	err error
}

func (f *fakeService) Build(ctx context.Context, req types.BuildRequest) (*build.Result, error) {
	f.got = req
	return f.res, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleDocument() *types.Document {
	doc := types.NewDocument()
	doc.Elements = []types.Element{{
		Type:  types.TypeComposition,
		Track: 1,
		Elements: []types.Element{
			{Type: types.TypeVideo, Track: 1, Source: "https://cdn.example.com/a.mp4", Volume: types.Zero()},
			{ID: "v1", Type: types.TypeAudio, Track: 3, Source: "hi", Provider: "elevenlabs voice_id=n", Dynamic: true},
			{Type: types.TypeText, Track: 2, Width: "50%", XAlignment: "50%", YAlignment: "85%", TranscriptSource: "v1"},
		},
	}}
	return doc
}

func TestHealth(t *testing.T) {
	w := do(t, NewServer(&fakeService{}).Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateBuild(t *testing.T) {
	svc := &fakeService{res: &build.Result{BuildID: "abc123", Document: sampleDocument()}}
	h := NewServer(svc).Handler()

	w := do(t, h, http.MethodPost, "/v1/builds", map[string]any{
		"script":       "Once upon a time.",
		"video_assets": []map[string]any{{"id": "a", "url": "https://cdn.example.com/a.mp4"}},
		"voice_id":     "narrator",
		"caption_configuration": map[string]any{
			"enabled": "yes", "presetId": 123, "placement": "diagonal",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "narrator", svc.got.VoiceID)
	require.NotNil(t, svc.got.CaptionConfiguration)
	assert.Equal(t, "yes", svc.got.CaptionConfiguration.Enabled)
	assert.Equal(t, float64(123), svc.got.CaptionConfiguration.PresetID)

	var body struct {
		BuildID  string         `json:"build_id"`
		Document types.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc123", body.BuildID)
	assert.Equal(t, 1080, body.Document.Width)
}

func TestCreateBuildErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&types.SchemaLoadError{Source: "gs://docs/schema.md", Err: errors.New("denied")}, http.StatusServiceUnavailable, types.KindSchemaLoad},
		{&types.PlanningError{Scene: 2, Field: "video_asset", Reason: "absent"}, http.StatusBadGateway, types.KindPlanning},
		{&types.PlanningError{Field: "script", Reason: "script is empty", Input: true}, http.StatusBadRequest, types.KindPlanning},
		{&types.AssemblyError{Field: "provider", Reason: "invalid synthesis profile", Input: true}, http.StatusBadRequest, types.KindAssembly},
		{&types.AssemblyError{Reason: "bad"}, http.StatusBadGateway, types.KindAssembly},
		{&types.ValidationFailure{Violations: []string{"document: dimensions"}}, http.StatusUnprocessableEntity, types.KindValidation},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, types.KindInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status)+"/"+tt.kind, func(t *testing.T) {
			h := NewServer(&fakeService{err: tt.err}).Handler()
			w := do(t, h, http.MethodPost, "/v1/builds", map[string]any{"script": "x"})
			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.ErrorKind)
		})
	}
}

func TestCreateBuildBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/builds", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewServer(&fakeService{}).Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewCaptions(t *testing.T) {
	h := NewServer(&fakeService{}).Handler()
	w := do(t, h, http.MethodPost, "/v1/captions/preview", map[string]any{
		"document":              sampleDocument(),
		"caption_configuration": map[string]any{"presetId": "karaoke", "transcriptEffect": "bounce", "placement": "center"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Document types.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	text, ok := body.Document.Elements[0].Child(types.TypeText)
	require.True(t, ok)
	assert.Equal(t, "#04f827", text.TranscriptColor)
	assert.Equal(t, "bounce", text.TranscriptEffect)
	assert.Equal(t, "50%", text.YAlignment)
}

func TestValidateEndpoint(t *testing.T) {
	h := NewServer(&fakeService{}).Handler()

	w := do(t, h, http.MethodPost, "/v1/validate", sampleDocument())
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OK         bool     `json:"ok"`
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK, "85% is not a final caption position")
	assert.Contains(t, body.Violations, `elements[0].text: y_alignment "85%" is not one of 10%, 50%, 90%`)
}

func TestListPresets(t *testing.T) {
	w := do(t, NewServer(&fakeService{}).Handler(), http.MethodGet, "/v1/caption-presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default":"karaoke"`)
	assert.Contains(t, w.Body.String(), `"transcriptColor":"#04f827"`)
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, NewServer(&fakeService{}).Handler(), http.MethodOptions, "/v1/builds", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(&fakeService{}).Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	err := NewServer(&fakeService{}).Run(context.Background(), "127.0.0.1:-1")
	assert.Error(t, err)
}
