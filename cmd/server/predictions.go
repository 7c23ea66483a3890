package main

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/report"
)

type predictRequest struct {
	pricing.Request
	TargetID   string `json:"targetId"`
	TargetType string `json:"targetType"`
}

type predictionView struct {
	ID string `json:"id,omitempty"`
	pricing.Result
}

type predictResponse struct {
	Success    bool           `json:"success"`
	Prediction predictionView `json:"prediction"`
}

func (s *server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := s.predictor.PredictAndRecord(r.Context(), req.Request, pricing.Target{ID: req.TargetID, Type: req.TargetType})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("pricing prediction failed", zap.Error(err))
		}
		writeError(w, status, "Failed to generate pricing prediction", err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Success:    true,
		Prediction: predictionView{ID: rec.ID, Result: rec.Result},
	})
}

func (s *server) handlePredictionsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	predictions, err := s.store.ListPredictions(r.Context(), query)
	if err != nil {
		s.logger.Error("list predictions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load predictions", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"predictions": predictions,
	})
}

func (s *server) handlePredictionsExport(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	predictions, err := s.store.ListPredictions(r.Context(), query)
	if err != nil {
		s.logger.Error("list predictions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load predictions", nil)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePredictions(&buf, predictions); err != nil {
		s.logger.Error("export predictions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export predictions", nil)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pricing-predictions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handlePredictionText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetPrediction(r.Context(), id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("load prediction failed", zap.String("id", id), zap.Error(err))
			http.Error(w, "failed to load prediction", status)
			return
		}
		http.Error(w, "prediction not found", status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(formatPredictionText(rec)))
}

func formatPredictionText(rec pricing.Record) string {
	var b strings.Builder
	req, res := rec.Request, rec.Result

	fmt.Fprintf(&b, "Pricing prediction %s\n", rec.ID)
	fmt.Fprintf(&b, "Created: %s UTC\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Target: %s %s\n\n", rec.Target.Type, rec.Target.ID)

	b.WriteString("Request:\n")
	fmt.Fprintf(&b, "- Product: %s\n", req.Product)
	fmt.Fprintf(&b, "- Category: %s\n", req.Category)
	fmt.Fprintf(&b, "- Quantity: %s\n", formatQuantity(req.Quantity))
	if req.CustomerName != "" {
		fmt.Fprintf(&b, "- Customer: %s\n", req.CustomerName)
	}
	if size := req.Specifications.Size; size != nil {
		fmt.Fprintf(&b, "- Size: %gx%g mm\n", size.Width, size.Height)
	}
	for _, attr := range []struct{ label, value string }{
		{"Glazing", req.Specifications.Glazing},
		{"Frame", req.Specifications.Frame},
		{"Complexity", req.Specifications.Complexity},
		{"Service type", req.Specifications.ServiceType},
		{"Urgency", req.Specifications.Urgency},
	} {
		if attr.value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", attr.label, attr.value)
		}
	}

	b.WriteString("\nPrediction:\n")
	fmt.Fprintf(&b, "- Predicted price: £%.2f\n", res.PredictedPrice)
	fmt.Fprintf(&b, "- Range: £%.2f - £%.2f\n", res.PriceRange.Min, res.PriceRange.Max)
	fmt.Fprintf(&b, "- Confidence: %d%%\n", int(math.Round(res.Confidence*100)))
	fmt.Fprintf(&b, "- Model: %s\n", res.ModelUsed)

	b.WriteString("\nFactors:\n")
	fmt.Fprintf(&b, "- Unit base price: £%.2f\n", res.Factors.BasePrice)
	fmt.Fprintf(&b, "- Market adjustment: %+.1f%%\n", res.Factors.MarketAdjustment*100)
	fmt.Fprintf(&b, "- Customer adjustment: %+.1f%%\n", res.Factors.CustomerAdjustment*100)
	for _, rule := range res.Factors.AppliedRules {
		fmt.Fprintf(&b, "- Rule %s (%s): %s\n", rule.Name, rule.Type, rule.Adjustment)
	}

	if mc := res.MarketContext; mc != nil {
		fmt.Fprintf(&b, "\nMarket: average £%.2f, %s (%s)\n", mc.AveragePrice, mc.Trend, mc.Source)
	}

	if len(res.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, line := range res.Recommendations {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return b.String()
}

func formatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return fmt.Sprintf("%.0f", q)
	}
	return fmt.Sprintf("%g", q)
}
