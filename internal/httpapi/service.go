package httpapi

import (
	"context"

	"upscaled/internal/assets"
	"upscaled/internal/manager"
	"upscaled/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	SelectModel(id string) error
	Reload() error
	SelectImage(content []byte, name string) error
	Run(ctx context.Context) error
	Reset() error
	Download() (manager.Download, error)
	Asset(id string) (assets.Asset, bool)
	// Subscribe streams lifecycle events until cancel is called.
	Subscribe() (<-chan manager.Event, func())
}

// SessionService adapts a manager.Manager and its event broadcaster to
// Service.
type SessionService struct {
	*manager.Manager
	Events *manager.Broadcaster
}

// NewSessionService wires m to publish into a fresh broadcaster, keeping any
// publisher passed as also.
func NewSessionService(m *manager.Manager, also manager.EventPublisher) *SessionService {
	b := manager.NewBroadcaster(128)
	if also != nil {
		m.SetEventPublisher(manager.MultiPublisher{b, also})
	} else {
		m.SetEventPublisher(b)
	}
	return &SessionService{Manager: m, Events: b}
}

func (s *SessionService) ListModels() []types.Model {
	models := s.Manager.ListModels()
	out := make([]types.Model, len(models))
	for i, md := range models {
		out[i] = manager.ToAPIModel(md)
	}
	return out
}

func (s *SessionService) Run(ctx context.Context) error {
	_, err := s.Manager.Run(ctx)
	return err
}

func (s *SessionService) Subscribe() (<-chan manager.Event, func()) { return s.Events.Subscribe() }
