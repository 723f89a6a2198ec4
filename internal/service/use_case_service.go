package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/pkg/events"
	pktNats "dva-dashboard-be/pkg/nats"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const useCaseModule = "UseCaseService"

const (
	ingestDurable = "use-case-ingest"
	topUseCases   = 5
)

var ErrInvalidUseCase = errors.New("invalid use case")

// EventPublisher is implemented by *nats.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// EventSubscriber is implemented by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) (func(), error)
}

type IUseCaseService interface {
	Submit(ctx context.Context, req *dto.CreateUseCaseRequest) (*dto.CreateUseCaseResponse, error)
	Remove(ctx context.Context, id string) error
	Summary(ctx context.Context) (*dto.AnalyticsSummary, error)
	Start() error
	Stop()
}

// UseCaseService writes scored use cases into the prioritized collection.
// With a bus, submissions are published and a durable consumer applies them,
// so every instance sees the same ordering. Without one, writes go straight
// to the store.
type UseCaseService struct {
	store      docstore.Store
	publisher  EventPublisher
	subscriber EventSubscriber
	validate   *validator.Validate
	logger     logger.ILogger
	stops      []func()
}

func NewUseCaseService(store docstore.Store, pub EventPublisher, sub EventSubscriber, log logger.ILogger) *UseCaseService {
	return &UseCaseService{
		store:      store,
		publisher:  pub,
		subscriber: sub,
		validate:   validator.New(),
		logger:     log,
	}
}

func (s *UseCaseService) Submit(ctx context.Context, req *dto.CreateUseCaseRequest) (*dto.CreateUseCaseResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUseCase, err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if s.publisher != nil {
		payload := req.Body()
		payload["id"] = req.ID
		evt := events.BaseEvent{Type: events.UseCaseScored, Data: payload, OccurredAt: time.Now()}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			return nil, err
		}
		s.logger.Info(useCaseModule, "Use case queued", map[string]interface{}{"id": req.ID})
		return &dto.CreateUseCaseResponse{ID: req.ID, Queued: true}, nil
	}

	if err := s.store.Set(ctx, entity.UseCasesCollection, req.ID, req.Body()); err != nil {
		return nil, err
	}
	s.logger.Info(useCaseModule, "Use case stored", map[string]interface{}{"id": req.ID})
	return &dto.CreateUseCaseResponse{ID: req.ID}, nil
}

// Remove deletes a use case. Removing an unknown id is not an error.
func (s *UseCaseService) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidUseCase)
	}

	if s.publisher != nil {
		evt := events.BaseEvent{Type: events.UseCaseRemoved, Data: map[string]interface{}{"id": id}, OccurredAt: time.Now()}
		return s.publisher.Publish(ctx, evt)
	}
	return s.store.Delete(ctx, entity.UseCasesCollection, id)
}

// Summary aggregates the collection for the strategic alignment page.
func (s *UseCaseService) Summary(ctx context.Context) (*dto.AnalyticsSummary, error) {
	q := docstore.Collection(entity.UseCasesCollection).OrderBy("total_score", docstore.Descending)
	snap, err := s.store.Get(ctx, q)
	if err != nil {
		return nil, err
	}

	summary := &dto.AnalyticsSummary{ByType: []dto.FacetCount{}, TopUseCases: []dto.TopUseCase{}}
	typeIndex := map[string]int{}
	var scoreSum float64

	for _, doc := range snap.Documents {
		name, _ := doc.Body["name"].(string)
		ucType, _ := doc.Body["type"].(string)
		score := numberField(doc.Body["total_score"])

		summary.TotalUseCases++
		scoreSum += score

		if ucType != "" {
			if i, ok := typeIndex[ucType]; ok {
				summary.ByType[i].Count++
			} else {
				typeIndex[ucType] = len(summary.ByType)
				summary.ByType = append(summary.ByType, dto.FacetCount{Value: ucType, Count: 1})
			}
		}

		if len(summary.TopUseCases) < topUseCases {
			summary.TopUseCases = append(summary.TopUseCases, dto.TopUseCase{ID: doc.Key, Name: name, TotalScore: score})
		}
	}

	if summary.TotalUseCases > 0 {
		summary.AverageScore = scoreSum / float64(summary.TotalUseCases)
	}
	return summary, nil
}

// Start attaches the durable consumers. It is a no-op without a bus.
func (s *UseCaseService) Start() error {
	if s.subscriber == nil {
		return nil
	}

	handlers := map[string]pktNats.EventHandler{
		events.UseCaseScored:  s.handleScored,
		events.UseCaseRemoved: s.handleRemoved,
	}
	for eventType, handler := range handlers {
		stop, err := s.subscriber.Subscribe(events.Subject(eventType), ingestDurable+"-"+eventType, handler)
		if err != nil {
			s.Stop()
			s.logger.Error(useCaseModule, "Failed to start use case consumer", map[string]interface{}{"error": err, "type": eventType})
			return err
		}
		s.stops = append(s.stops, stop)
	}

	s.logger.Info(useCaseModule, "Use case consumers started", nil)
	return nil
}

func (s *UseCaseService) Stop() {
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
}

func (s *UseCaseService) handleScored(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	id, _ := payload["id"].(string)
	if id == "" {
		// no id: ack and drop
		s.logger.Warn(useCaseModule, "Dropping scored event without id", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	body := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k != "id" {
			body[k] = v
		}
	}

	if err := s.store.Set(ctx, entity.UseCasesCollection, id, body); err != nil {
		return err
	}
	s.logger.Info(useCaseModule, "Use case applied from bus", map[string]interface{}{"id": id})
	return nil
}

func (s *UseCaseService) handleRemoved(ctx context.Context, event events.Event) error {
	id, _ := event.Payload()["id"].(string)
	if id == "" {
		return nil
	}
	return s.store.Delete(ctx, entity.UseCasesCollection, id)
}

func numberField(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
