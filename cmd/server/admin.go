package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

func (s *server) handleAdminModelsList(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListModels(r.Context())
	if err != nil {
		s.logger.Error("list pricing models failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load pricing models", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *server) handleAdminModelsCreate(w http.ResponseWriter, r *http.Request) {
	m := pricing.Model{IsActive: true}
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateModel(m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pricing model", err)
		return
	}

	id, err := s.store.CreateModel(r.Context(), m)
	if err != nil {
		s.logger.Error("create pricing model failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create pricing model", nil)
		return
	}
	m.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "model": m})
}

func (s *server) handleAdminModelsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}

	m := pricing.Model{IsActive: true}
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m.ID = id
	if err := validateModel(m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pricing model", err)
		return
	}

	if err := s.store.UpdateModel(r.Context(), m); err != nil {
		s.writeStoreError(w, "Failed to update pricing model", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "model": m})
}

func (s *server) handleAdminRulesList(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		s.logger.Error("list pricing rules failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load pricing rules", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *server) handleAdminRulesCreate(w http.ResponseWriter, r *http.Request) {
	rule := pricing.Rule{IsActive: true}
	if err := decodeJSON(w, r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pricing rule", err)
		return
	}

	id, err := s.store.CreateRule(r.Context(), rule)
	if err != nil {
		s.logger.Error("create pricing rule failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create pricing rule", nil)
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "rule": rule})
}

func (s *server) handleAdminRulesUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}

	rule := pricing.Rule{IsActive: true}
	if err := decodeJSON(w, r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rule.ID = id
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pricing rule", err)
		return
	}

	if err := s.store.UpdateRule(r.Context(), rule); err != nil {
		s.writeStoreError(w, "Failed to update pricing rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "rule": rule})
}

func (s *server) handleAdminMarketDataList(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	points, err := s.store.ListMarketData(r.Context(), category)
	if err != nil {
		s.logger.Error("list market data failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load market data", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marketData": points})
}

func (s *server) handleAdminMarketDataCreate(w http.ResponseWriter, r *http.Request) {
	var p pricing.MarketDataPoint
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateMarketData(p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid market data", err)
		return
	}

	id, err := s.store.CreateMarketData(r.Context(), p)
	if err != nil {
		s.logger.Error("create market data failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create market data", nil)
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(r.Context(), p.Category); err != nil {
			s.logger.Warn("market cache invalidation failed", zap.String("category", p.Category), zap.Error(err))
		}
	}
	p.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "marketData": p})
}

func (s *server) handleAdminCustomersList(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListCustomerProfiles(r.Context())
	if err != nil {
		s.logger.Error("list customer profiles failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load customer profiles", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": profiles})
}

func (s *server) handleAdminCustomersUpsert(w http.ResponseWriter, r *http.Request) {
	var p pricing.CustomerProfile
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p.CustomerName = strings.TrimSpace(chi.URLParam(r, "name"))
	if err := validateCustomer(p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer profile", err)
		return
	}

	inserted, err := s.store.UpsertCustomerProfile(r.Context(), p)
	if err != nil {
		s.logger.Error("upsert customer profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save customer profile", nil)
		return
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"success": true, "customer": p})
}

func (s *server) writeStoreError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(strings.ToLower(message), zap.Error(err))
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

func validateModel(m pricing.Model) error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(m.Category) == "" {
		return errors.New("category is required")
	}
	if err := checkNonNegative(m.BasePrice, "basePrice"); err != nil {
		return err
	}
	return checkFraction(m.Confidence, "confidence")
}

func validateMarketData(p pricing.MarketDataPoint) error {
	if strings.TrimSpace(p.Category) == "" {
		return errors.New("category is required")
	}
	if strings.TrimSpace(p.Product) == "" {
		return errors.New("product is required")
	}
	for _, f := range []struct {
		value float64
		name  string
	}{
		{p.AveragePrice, "averagePrice"},
		{p.MinPrice, "minPrice"},
		{p.MaxPrice, "maxPrice"},
	} {
		if err := checkNonNegative(f.value, f.name); err != nil {
			return err
		}
	}
	switch p.Trend {
	case "", pricing.TrendRising, pricing.TrendFalling, pricing.TrendStable:
	default:
		return fmt.Errorf("trend must be one of %s, %s or %s", pricing.TrendRising, pricing.TrendFalling, pricing.TrendStable)
	}
	return checkFraction(p.Confidence, "confidence")
}

func validateCustomer(p pricing.CustomerProfile) error {
	if p.CustomerName == "" {
		return errors.New("customer name is required")
	}
	if err := checkNonNegative(p.AverageValue, "averageValue"); err != nil {
		return err
	}
	if err := checkFraction(p.PriceAcceptance, "priceAcceptance"); err != nil {
		return err
	}
	return checkFraction(p.NegotiationRate, "negotiationRate")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer, got %q", raw)
	}
	return id, nil
}

func checkNonNegative(value float64, field string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be numeric", field)
	}
	if value < 0 {
		return fmt.Errorf("%s must be >= 0", field)
	}
	return nil
}

func checkFraction(value float64, field string) error {
	if err := checkNonNegative(value, field); err != nil {
		return err
	}
	if value > 1 {
		return fmt.Errorf("%s must be between 0 and 1", field)
	}
	return nil
}
