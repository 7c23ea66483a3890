package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/migrations"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

type predictOptions struct {
	category string
	product  string
	quantity float64
	specs    []string
	width    float64
	height   float64
	customer string
	urgency  string
	record   bool
}

func predictCmd(a *app) *cobra.Command {
	var opts predictOptions

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Price a request against the configured database",
		Example: `  server predict --category Windows --product "Double Glazed uPVC Window" \
    --width 1200 --height 1000 --spec glazing=double --spec frame=aluminium \
    --customer "Lodestone Projects"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			return a.predict(cmd.Context(), cmd.OutOrStdout(), req, opts.record)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "product category (required)")
	cmd.Flags().StringVar(&opts.product, "product", "", "product name (required)")
	cmd.Flags().Float64Var(&opts.quantity, "quantity", 1, "number of units")
	cmd.Flags().StringArrayVar(&opts.specs, "spec", nil, "specification attribute as key=value, repeatable")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "width in mm")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "height in mm")
	cmd.Flags().StringVar(&opts.customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&opts.urgency, "urgency", "", "urgency level")
	cmd.Flags().BoolVar(&opts.record, "record", false, "store the prediction and its activity entry")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

// request builds the prediction request. Specification attributes go through the same lenient
// decoding as HTTP requests so aliases like service_type are honoured.
func (o predictOptions) request() (pricing.Request, error) {
	raw := make(map[string]any, len(o.specs)+1)
	for _, kv := range o.specs {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return pricing.Request{}, fmt.Errorf("invalid --spec %q: want key=value", kv)
		}
		raw[key] = strings.TrimSpace(value)
	}
	if o.width > 0 || o.height > 0 {
		raw["size"] = map[string]float64{"width": o.width, "height": o.height}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return pricing.Request{}, err
	}
	var spec pricing.Specification
	if err := json.Unmarshal(data, &spec); err != nil {
		return pricing.Request{}, fmt.Errorf("decode specification: %w", err)
	}

	return pricing.Request{
		Product:        o.product,
		Category:       o.category,
		Quantity:       o.quantity,
		Specifications: spec,
		CustomerName:   o.customer,
		Urgency:        o.urgency,
	}, nil
}

func (a *app) predict(ctx context.Context, out io.Writer, req pricing.Request, record bool) error {
	database, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return err
	}

	e, err := a.buildEngine(ctx, database)
	if err != nil {
		return err
	}
	defer e.close()

	var view predictionView
	if record {
		rec, err := e.predictor.PredictAndRecord(ctx, req, pricing.Target{ID: "cli", Type: "MANUAL"})
		if err != nil {
			return err
		}
		e.predictor.Wait()
		view = predictionView{ID: rec.ID, Result: rec.Result}
	} else {
		result, err := e.predictor.Predict(ctx, req)
		if err != nil {
			return err
		}
		view = predictionView{Result: result}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
