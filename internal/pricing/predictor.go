package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ModelFinder returns the highest-confidence active model of a category, or an error wrapping
// ErrModelNotFound.
type ModelFinder interface {
	FindBestModel(ctx context.Context, category string) (Model, error)
}

// RuleLister returns the active rules applicable to a category.
type RuleLister interface {
	ListActiveRules(ctx context.Context, category string) ([]Rule, error)
}

// MarketDataFinder returns the most recent market data point, or nil when there is none.
type MarketDataFinder interface {
	FindLatestMarketData(ctx context.Context, category, product string) (*MarketDataPoint, error)
}

// CustomerProfileFinder returns a customer's behaviour profile, or nil when there is none.
type CustomerProfileFinder interface {
	FindCustomerProfile(ctx context.Context, customerName string) (*CustomerProfile, error)
}

// Sources are the read collaborators of a Predictor. Market and Customers are optional.
type Sources struct {
	Models    ModelFinder
	Rules     RuleLister
	Market    MarketDataFinder
	Customers CustomerProfileFinder
}

// Predictor turns prediction requests into results. It keeps no state between predictions
// apart from in-flight recordings.
type Predictor struct {
	sources  Sources
	cfg      Config
	logger   *zap.Logger
	sinks    []PredictionSink
	activity []ActivityLog
	now      func() time.Time

	formula    FormulaEvaluator
	rules      RuleEngine
	market     MarketAdjuster
	customer   CustomerAdjuster
	confidence ConfidenceEstimator

	inflight sync.WaitGroup
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithConfig replaces the default engine configuration.
func WithConfig(cfg Config) Option {
	return func(p *Predictor) { p.cfg = cfg }
}

// WithPredictionSink adds sinks that receive every recorded prediction.
func WithPredictionSink(sinks ...PredictionSink) Option {
	return func(p *Predictor) { p.sinks = append(p.sinks, sinks...) }
}

// WithActivityLog adds activity logs that receive an entry per recorded prediction.
func WithActivityLog(logs ...ActivityLog) Option {
	return func(p *Predictor) { p.activity = append(p.activity, logs...) }
}

// WithClock overrides the clock used to timestamp records.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// New creates a Predictor.
func New(sources Sources, logger *zap.Logger, opts ...Option) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{
		sources: sources,
		cfg:     DefaultConfig(),
		logger:  logger.Named("predictor"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.rules = RuleEngine{DefaultMaxDiscount: p.cfg.DefaultMaxDiscount}
	p.market = MarketAdjuster{
		Threshold: p.cfg.MarketDeviationThreshold,
		PullDown:  p.cfg.MarketPullDown,
		PushUp:    p.cfg.MarketPushUp,
	}
	p.customer = CustomerAdjuster{
		AcceptanceThreshold: p.cfg.CustomerAcceptanceThreshold,
		Discount:            p.cfg.CustomerDiscount,
	}
	p.confidence = ConfidenceEstimator{
		MarketBonus:   p.cfg.MarketDataBonus,
		CustomerBonus: p.cfg.CustomerDataBonus,
		Cap:           p.cfg.ConfidenceCap,
	}
	return p
}

// inputs are the collaborator reads a prediction depends on.
type inputs struct {
	model    Model
	rules    []Rule
	market   *MarketDataPoint
	customer *CustomerProfile
}

// Predict prices a request. Only a missing model, unavailable rules or an invalid request fail
// the prediction; market and customer lookups degrade to no-ops.
func (p *Predictor) Predict(ctx context.Context, req Request) (Result, error) {
	result, _, _, err := p.predict(ctx, req)
	return result, err
}

// PredictAndRecord prices a request and hands the outcome to the configured sinks without
// waiting for them.
func (p *Predictor) PredictAndRecord(ctx context.Context, req Request, target Target) (Record, error) {
	result, normalized, modelID, err := p.predict(ctx, req)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:             uuid.NewString(),
		PredictionType: PredictionTypeQuote,
		Target:         target.withDefaults(),
		ModelID:        modelID,
		Request:        normalized,
		Result:         result,
		CreatedAt:      p.now().UTC(),
	}
	p.record(ctx, rec)
	return rec, nil
}

// Wait blocks until every in-flight recording has finished.
func (p *Predictor) Wait() {
	p.inflight.Wait()
}

func (p *Predictor) predict(ctx context.Context, req Request) (Result, Request, int64, error) {
	req, err := normalize(req)
	if err != nil {
		return Result{}, req, 0, err
	}

	in, err := p.gather(ctx, req)
	if err != nil {
		return Result{}, req, 0, err
	}

	result := p.compute(req, in)
	p.logger.Info("pricing prediction computed",
		zap.String("category", req.Category),
		zap.String("product", req.Product),
		zap.String("model", in.model.Name),
		zap.Float64("predicted_price", result.PredictedPrice),
		zap.Float64("confidence", result.Confidence),
		zap.Int("applied_rules", len(result.Factors.AppliedRules)))
	return result, req, in.model.ID, nil
}

// gather loads the model and rules (fatal on failure) concurrently with the market data and
// customer profile (absent on failure).
func (p *Predictor) gather(ctx context.Context, req Request) (inputs, error) {
	var in inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		model, err := p.sources.Models.FindBestModel(gctx, req.Category)
		if err != nil {
			if errors.Is(err, ErrModelNotFound) {
				return err
			}
			return fmt.Errorf("find pricing model for %q: %w", req.Category, err)
		}
		in.model = model
		return nil
	})

	g.Go(func() error {
		rules, err := p.sources.Rules.ListActiveRules(gctx, req.Category)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRulesUnavailable, err)
		}
		in.rules = rules
		return nil
	})

	if p.sources.Market != nil {
		g.Go(func() error {
			in.market = p.lookupMarket(gctx, req)
			return nil
		})
	}

	if p.sources.Customers != nil && req.CustomerName != "" {
		g.Go(func() error {
			in.customer = p.lookupCustomer(gctx, req.CustomerName)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return in, nil
}

func (p *Predictor) lookupMarket(ctx context.Context, req Request) *MarketDataPoint {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	point, err := p.sources.Market.FindLatestMarketData(ctx, req.Category, req.Product)
	if err != nil {
		p.logger.Warn("market data lookup failed, continuing without market context",
			zap.String("category", req.Category),
			zap.String("product", req.Product),
			zap.Error(err))
		return nil
	}
	return point
}

func (p *Predictor) lookupCustomer(ctx context.Context, name string) *CustomerProfile {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	profile, err := p.sources.Customers.FindCustomerProfile(ctx, name)
	if err != nil {
		p.logger.Warn("customer profile lookup failed, continuing without customer profile",
			zap.String("customer", name),
			zap.Error(err))
		return nil
	}
	return profile
}

func (p *Predictor) compute(req Request, in inputs) Result {
	unit, total := p.formula.Evaluate(in.model, req.Specifications, req.Quantity)

	rc := RuleContext{
		BasePrice: unit,
		Quantity:  req.Quantity,
		Spec:      req.Specifications,
		Customer:  in.customer,
	}
	steps := p.rules.Steps(in.rules, req.Category, rc)
	steps = append(steps, p.market.Step(in.market, unit), p.customer.Step(in.customer))
	final, trace := Fold(total, steps...)

	predicted := roundMoney(final)
	confidence := p.confidence.Estimate(in.model.Confidence, in.market != nil, in.customer != nil)

	result := Result{
		PredictedPrice: predicted,
		Confidence:     confidence,
		PriceRange:     p.confidence.Range(predicted, confidence),
		Factors: Breakdown{
			BasePrice:          roundMoney(unit),
			Quantity:           req.Quantity,
			MarketAdjustment:   stageFraction(trace, StageMarket),
			CustomerAdjustment: stageFraction(trace, StageCustomer),
			AppliedRules:       appliedRules(trace),
		},
		Recommendations: Recommend(Trace{
			Price:      final,
			BasePrice:  unit,
			Confidence: confidence,
			Market:     in.market,
			Customer:   in.customer,
		}),
		ModelUsed: in.model.Name,
		Trace:     trace,
	}
	if in.market != nil {
		result.MarketContext = &MarketContext{
			AveragePrice: in.market.AveragePrice,
			Trend:        in.market.Trend,
			Source:       in.market.Source,
		}
	}
	return result
}

func normalize(req Request) (Request, error) {
	req.Product = strings.TrimSpace(req.Product)
	req.Category = strings.TrimSpace(req.Category)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Urgency = strings.TrimSpace(req.Urgency)

	if req.Category == "" {
		return req, fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	if req.Product == "" {
		return req, fmt.Errorf("%w: product is required", ErrInvalidRequest)
	}
	if math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) || req.Quantity < 0 {
		return req, fmt.Errorf("%w: quantity must be a positive number", ErrInvalidRequest)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Urgency != "" {
		req.Specifications.Urgency = req.Urgency
	}
	if req.Specifications.Size != nil && !req.Specifications.Size.valid() {
		req.Specifications.Size = nil
	}
	return req, nil
}

func roundMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
