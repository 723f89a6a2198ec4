package service

import (
	"context"
	"errors"
	"time"

	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/matrix"
)

type IMatrixService interface {
	NewPage(sessionToken string) *matrix.Page
	Render(ctx context.Context, sel entity.FilterSelection, sessionToken string) (*MatrixRender, error)
}

// MatrixRender is one server-side render of the matrix view.
type MatrixRender struct {
	Model matrix.ViewModel
	// SessionToken is set when the view signed in and the browser should
	// store the new token.
	SessionToken string
}

type MatrixService struct {
	cfg        matrix.MatrixConfig
	deps       matrix.PageDeps
	renderWait time.Duration
}

func NewMatrixService(cfg matrix.MatrixConfig, deps matrix.PageDeps, renderWait time.Duration) *MatrixService {
	return &MatrixService{cfg: cfg, deps: deps, renderWait: renderWait}
}

// NewPage creates a live view for a websocket connection. The caller opens
// and closes it.
func (s *MatrixService) NewPage(sessionToken string) *matrix.Page {
	return matrix.NewPage(s.cfg, s.deps, sessionToken)
}

// Render opens a view, waits until the list settles or the render wait runs
// out, and returns whatever the view shows at that point. The view and both
// of its subscriptions are released before Render returns.
func (s *MatrixService) Render(ctx context.Context, sel entity.FilterSelection, sessionToken string) (*MatrixRender, error) {
	page := matrix.NewPage(s.cfg, s.deps, sessionToken)
	defer page.Close()

	page.SetFilter(sel)

	if err := page.Open(ctx); err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			return &MatrixRender{Model: page.Model()}, nil
		}
		return nil, err
	}

	timer := time.NewTimer(s.renderWait)
	defer timer.Stop()

	select {
	case <-page.Settled():
	case <-timer.C:
	case <-ctx.Done():
	}

	out := &MatrixRender{Model: page.Model()}
	if token := page.SessionToken(); token != "" && token != sessionToken {
		out.SessionToken = token
	}
	return out, nil
}
