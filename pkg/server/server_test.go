package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/audit"
	"netsecml/pkg/config"
	"netsecml/pkg/data"
	"netsecml/pkg/dataprep"
	"netsecml/pkg/estimator"
	"netsecml/pkg/model"
	"netsecml/pkg/pipeline"
	"netsecml/pkg/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// textModel is trained on texts that differ only in the word "malware".
func textModel(t *testing.T) *estimator.NetworkModel {
	t.Helper()
	train := data.NewTable(dataprep.FeatureNames...)
	var y []int
	for i := 0; i < 20; i++ {
		text, label := fmt.Sprintf("suspicious package seen on host %d", i), 0
		if i%2 == 1 {
			text, label = fmt.Sprintf("suspicious malware seen on host %d", i), 1
		}
		row := make([]string, 0, len(dataprep.FeatureNames))
		for _, v := range dataprep.ExtractTextFeatures(text) {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		train.Rows = append(train.Rows, row)
		y = append(y, label)
	}
	pre := pipeline.NewPreprocessor(3)
	X, err := pre.FitTransform(train)
	require.NoError(t, err)
	clf := model.NewDecisionTreeClassifier(model.WithRandomState(7))
	require.NoError(t, clf.Fit(X.Rows(), y))
	return estimator.New(model.DecisionTreeName, pre, clf)
}

type fakeAuditor struct {
	events chan audit.Event
}

func (f *fakeAuditor) Log(_ context.Context, ev audit.Event) error {
	f.events <- ev
	return nil
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.ReportsDir = t.TempDir()
	cfg.RateLimit = 0
	return cfg
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := do(New(testConfig(t), nil, zap.NewNop()).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Model not loaded", decode(t, w)["detail"])

	w = do(New(testConfig(t), textModel(t), zap.NewNop()).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["model_loaded"])
}

func TestPredictWithoutModel(t *testing.T) {
	h := New(testConfig(t), nil, zap.NewNop()).Handler()
	w := do(h, http.MethodPost, "/predict/text", `{"text":"malware"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPredictVectors(t *testing.T) {
	h := New(testConfig(t), textModel(t), zap.NewNop()).Handler()
	malicious := dataprep.ExtractTextFeatures("suspicious malware seen on host 99")
	benign := dataprep.ExtractTextFeatures("suspicious package seen on host 99")
	body, err := json.Marshal(map[string]any{"features": [][]float64{malicious, benign}})
	require.NoError(t, err)

	w := do(h, http.MethodPost, "/predict", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp predictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int{1, 0}, resp.Predictions)
	assert.Equal(t, map[string]float64{"0": 0, "1": 1}, resp.PredictionProbabilities[0])
	assert.Empty(t, resp.Interpretation)
}

func TestPredictNamedFeatures(t *testing.T) {
	h := New(testConfig(t), textModel(t), zap.NewNop()).Handler()
	feats := dataprep.ExtractTextFeatures("suspicious malware seen on host 99")
	// reversed column order must still line up by name
	names := make([]string, len(dataprep.FeatureNames))
	row := make([]float64, len(feats))
	for i := range names {
		j := len(names) - 1 - i
		names[i] = dataprep.FeatureNames[j]
		row[i] = feats[j]
	}
	body, err := json.Marshal(map[string]any{"features": [][]float64{row}, "feature_names": names})
	require.NoError(t, err)

	w := do(h, http.MethodPost, "/predict", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{float64(1)}, decode(t, w)["predictions"])

	body, err = json.Marshal(map[string]any{"features": [][]float64{{1, 2}}, "feature_names": []string{"text_length"}})
	require.NoError(t, err)
	w = do(h, http.MethodPost, "/predict", string(body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "Prediction error")
}

func TestPredictBadRequests(t *testing.T) {
	h := New(testConfig(t), textModel(t), zap.NewNop()).Handler()
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/predict", `{"features":`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/predict/text", `{}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/predict", `{"features":[]}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/predict", `{"features":[[]]}`).Code)

	w := do(h, http.MethodPost, "/predict", `{"features":[[1,2,3]]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPredictTextAudits(t *testing.T) {
	aud := &fakeAuditor{events: make(chan audit.Event, 1)}
	h := New(testConfig(t), textModel(t), zap.NewNop(), WithAuditor(aud)).Handler()

	w := do(h, http.MethodPost, "/predict/text", `{"text":"New malware campaign spotted"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp predictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int{1}, resp.Predictions)
	assert.Equal(t, "Malware detected", resp.Interpretation)
	assert.Equal(t, 0.7, resp.ExtractedFeatures["contains_malware_word"])

	select {
	case ev := <-aud.events:
		assert.Equal(t, "/predict/text", ev.Endpoint)
		assert.Equal(t, 1, ev.Prediction)
		assert.Equal(t, model.DecisionTreeName, ev.ModelName)
		assert.Equal(t, "New malware campaign spotted", ev.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("prediction was not audited")
	}

	w = do(h, http.MethodPost, "/predict/text", `{"text":"quarterly newsletter"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No malware detected", decode(t, w)["interpretation"])
}

func TestModelInfo(t *testing.T) {
	cfg := testConfig(t)
	w := do(New(cfg, nil, zap.NewNop()).Handler(), http.MethodGet, "/model-info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["message"], "No model information")

	raw := []byte(`{"test_f1": 0.91, "test_accuracy": 0.9}`)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ReportsDir, config.MetricsFileName), raw, 0o644))
	reg := registry.NewFileRegistry(filepath.Join(t.TempDir(), config.LatestRunName))
	srv := New(cfg, textModel(t), zap.NewNop(), WithRegistry(reg))

	body := decode(t, do(srv.Handler(), http.MethodGet, "/model-info", ""))
	assert.Equal(t, "decision_tree (Local)", body["model_name"])
	assert.Equal(t, map[string]any{"test_f1": 0.91, "test_accuracy": 0.9}, body["metrics"])

	require.NoError(t, reg.Record(context.Background(), registry.RunRecord{
		RunID:      "run-1",
		ModelName:  model.RandomForestName,
		TestMetric: artifact.ClassificationMetricArtifact{F1Score: 0.95, Accuracy: 0.94},
	}))
	body = decode(t, do(srv.Handler(), http.MethodGet, "/model-info", ""))
	assert.Equal(t, "random_forest", body["model_name"])
	assert.Equal(t, "run-1", body["version"])
	assert.Equal(t, map[string]any{"accuracy": 0.94, "f1_score": 0.95}, body["metrics"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(testConfig(t), textModel(t), zap.NewNop()).Handler()
	do(h, http.MethodPost, "/predict/text", `{"text":"malware"}`)
	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `netsec_predictions_total{endpoint="/predict/text",label="1"} 1`)
	assert.Contains(t, w.Body.String(), `netsec_http_requests_total{method="POST",route="/predict/text",status="200"} 1`)
}

func TestMiddleware(t *testing.T) {
	srv := New(testConfig(t), textModel(t), zap.NewNop())
	srv.engine.GET("/boom", func(*gin.Context) { panic("boom") })
	h := srv.Handler()

	w := do(h, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occurred: boom", decode(t, w)["message"])

	w = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit, cfg.Burst = 1, 1
	h := New(cfg, textModel(t), zap.NewNop()).Handler()
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodGet, "/health", "").Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Addr = "127.0.0.1:0"
	srv := New(cfg, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
