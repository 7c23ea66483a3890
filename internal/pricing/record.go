package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// PredictionTypeQuote is the prediction type of quote pricing requests.
const PredictionTypeQuote = "QUOTE_PRICING"

// ActivityTypePrediction is the activity type logged for every recorded prediction.
const ActivityTypePrediction = "PRICING_PREDICTION"

// ActivityActor is the actor recorded on prediction activities.
const ActivityActor = "SFG PRICE INTELLIGENCE"

// PredictionSink persists recorded predictions.
type PredictionSink interface {
	SavePrediction(ctx context.Context, rec Record) error
}

// ActivityLog appends audit entries.
type ActivityLog interface {
	AppendActivity(ctx context.Context, activity Activity) error
}

// Target identifies what a prediction was made for, e.g. a quote or an enquiry.
type Target struct {
	ID   string `json:"targetId"`
	Type string `json:"targetType"`
}

func (t Target) withDefaults() Target {
	if t.ID == "" {
		t.ID = "manual"
	}
	if t.Type == "" {
		t.Type = "MANUAL"
	}
	return t
}

// Record is a prediction as handed to sinks.
type Record struct {
	ID             string    `json:"id"`
	PredictionType string    `json:"predictionType"`
	Target         Target    `json:"target"`
	ModelID        int64     `json:"modelId"`
	Request        Request   `json:"request"`
	Result         Result    `json:"result"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Activity is an audit log entry.
type Activity struct {
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	Actor          string    `json:"actor"`
	PredictionID   string    `json:"predictionId"`
	Product        string    `json:"product"`
	Category       string    `json:"category"`
	PredictedPrice float64   `json:"predictedPrice"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ActivityFor builds the audit entry of a recorded prediction.
func ActivityFor(rec Record) Activity {
	return Activity{
		Type: ActivityTypePrediction,
		Description: fmt.Sprintf("Pricing prediction generated for %s - £%.2f (%d%% confidence)",
			rec.Request.Product, rec.Result.PredictedPrice, int(math.Round(rec.Result.Confidence*100))),
		Actor:          ActivityActor,
		PredictionID:   rec.ID,
		Product:        rec.Request.Product,
		Category:       rec.Request.Category,
		PredictedPrice: rec.Result.PredictedPrice,
		CreatedAt:      rec.CreatedAt,
	}
}

// record delivers rec to the sinks in the background. Failures are logged and dropped: the
// prediction has already been returned to the caller.
func (p *Predictor) record(ctx context.Context, rec Record) {
	if len(p.sinks) == 0 && len(p.activity) == 0 {
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.SinkTimeout)
		defer cancel()

		for _, sink := range p.sinks {
			if err := sink.SavePrediction(ctx, rec); err != nil {
				p.logger.Error("failed to save prediction",
					zap.String("prediction_id", rec.ID),
					zap.Error(err))
			}
		}

		activity := ActivityFor(rec)
		for _, activityLog := range p.activity {
			if err := activityLog.AppendActivity(ctx, activity); err != nil {
				p.logger.Error("failed to append prediction activity",
					zap.String("prediction_id", rec.ID),
					zap.Error(err))
			}
		}
	}()
}
