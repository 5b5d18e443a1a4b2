package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"netsecml/pkg/audit"
	"netsecml/pkg/config"
	"netsecml/pkg/data"
	"netsecml/pkg/dataprep"
	"netsecml/pkg/estimator"
	"netsecml/pkg/registry"
)

type featuresRequest struct {
	Features     [][]float64 `json:"features" binding:"required,min=1,dive,min=1"`
	FeatureNames []string    `json:"feature_names"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

type predictionResponse struct {
	Predictions             []int                `json:"predictions"`
	PredictionProbabilities []map[string]float64 `json:"prediction_probabilities"`
	Confidence              []float64            `json:"confidence"`
	MaliciousProbability    []float64            `json:"malicious_probability"`
	Interpretation          string               `json:"interpretation,omitempty"`
	ExtractedFeatures       map[string]float64   `json:"features,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Model not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "model_loaded": true, "model_name": s.model.Name})
}

func (s *Server) handlePredict(c *gin.Context) {
	if !s.requireModel(c) {
		return
	}
	var req featuresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	var (
		preds []estimator.Prediction
		err   error
	)
	if len(req.FeatureNames) > 0 {
		var t *data.Table
		if t, err = namedTable(req.FeatureNames, req.Features); err == nil {
			preds, err = s.model.Predict(t)
		}
	} else {
		preds, err = s.model.PredictVectors(req.Features)
	}
	if err != nil {
		s.predictionError(c, err)
		return
	}
	s.observe(c, "/predict", preds, "")
	c.JSON(http.StatusOK, newResponse(preds))
}

func (s *Server) handlePredictText(c *gin.Context) {
	if !s.requireModel(c) {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	feats := dataprep.ExtractTextFeatures(req.Text)
	t, err := namedTable(dataprep.FeatureNames, [][]float64{feats})
	if err != nil {
		s.predictionError(c, err)
		return
	}
	preds, err := s.model.Predict(t)
	if err != nil {
		s.predictionError(c, err)
		return
	}
	s.observe(c, "/predict/text", preds, req.Text)

	resp := newResponse(preds)
	resp.Interpretation = "No malware detected"
	if preds[0].Label == estimator.MaliciousLabel {
		resp.Interpretation = "Malware detected"
	}
	resp.ExtractedFeatures = make(map[string]float64, len(feats))
	for i, name := range dataprep.FeatureNames {
		resp.ExtractedFeatures[name] = feats[i]
	}
	c.JSON(http.StatusOK, resp)
}

// handleModelInfo prefers the registry, then the local metrics report.
func (s *Server) handleModelInfo(c *gin.Context) {
	if s.reg != nil {
		rec, err := s.reg.Latest(c.Request.Context())
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"model_name":             rec.ModelName,
				"version":                rec.RunID,
				"status":                 "READY",
				"creation_timestamp":     rec.Timestamp,
				"last_updated_timestamp": rec.RecordedAt,
				"metrics": gin.H{
					"accuracy": rec.TestMetric.Accuracy,
					"f1_score": rec.TestMetric.F1Score,
				},
			})
			return
		}
		if !errors.Is(err, registry.ErrNoRuns) {
			s.log.Warn("Registry lookup failed", zap.Error(err))
		}
	}

	path := filepath.Join(s.cfg.ReportsDir, config.MetricsFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("Local metrics file unavailable", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "No model information available from the registry or local files"})
		return
	}
	var metrics map[string]float64
	if err := json.Unmarshal(raw, &metrics); err != nil {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Error getting model info: %v", err)})
		return
	}
	name := "NetworkSecurityModel"
	if s.model != nil {
		name = s.model.Name
	}
	c.JSON(http.StatusOK, gin.H{
		"model_name": name + " (Local)",
		"version":    "1.0.0",
		"status":     "READY",
		"metrics":    metrics,
	})
}

func (s *Server) requireModel(c *gin.Context) bool {
	if s.model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Model not loaded"})
		return false
	}
	return true
}

func (s *Server) predictionError(c *gin.Context, err error) {
	s.log.Error("Prediction error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Prediction error: %v", err)})
}

// observe counts the predictions and hands them to the auditor off the request path.
func (s *Server) observe(c *gin.Context, endpoint string, preds []estimator.Prediction, text string) {
	for _, p := range preds {
		s.predictions.WithLabelValues(endpoint, strconv.Itoa(p.Label)).Inc()
	}
	if s.auditor == nil {
		return
	}
	now := time.Now().UTC()
	ip := c.ClientIP()
	events := make([]audit.Event, len(preds))
	for i, p := range preds {
		events[i] = audit.Event{
			Timestamp:            now,
			Endpoint:             endpoint,
			ClientIP:             ip,
			ModelName:            s.model.Name,
			Prediction:           p.Label,
			Confidence:           p.Confidence,
			MaliciousProbability: p.MaliciousProbability,
			Text:                 text,
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, ev := range events {
			if err := s.auditor.Log(ctx, ev); err != nil {
				s.log.Warn("Audit log failed", zap.Error(err))
				return
			}
		}
	}()
}

func newResponse(preds []estimator.Prediction) predictionResponse {
	resp := predictionResponse{
		Predictions:             make([]int, len(preds)),
		PredictionProbabilities: make([]map[string]float64, len(preds)),
		Confidence:              make([]float64, len(preds)),
		MaliciousProbability:    make([]float64, len(preds)),
	}
	for i, p := range preds {
		resp.Predictions[i] = p.Label
		resp.PredictionProbabilities[i] = p.Probabilities
		resp.Confidence[i] = p.Confidence
		resp.MaliciousProbability[i] = p.MaliciousProbability
	}
	return resp
}

// namedTable lays numeric rows out under the given column names.
func namedTable(names []string, rows [][]float64) (*data.Table, error) {
	t := data.NewTable(names...)
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d features but %d feature names were given", i, len(row), len(names))
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				cells[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}
