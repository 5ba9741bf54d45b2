package nav

import (
	"context"
	"time"

	"github.com/meridian-portal/meridian-portal/internal/authz"
)

// ResolverPort abstracts the permission resolver for the tree builder.
type ResolverPort interface {
	Resolve(ctx context.Context, id authz.Identity) (authz.VisibleTree, error)
}

// MetricsPort records resolution outcomes.
type MetricsPort interface {
	ObserveResolution(outcome string, duration time.Duration)
}

// Catalogue is one navigation entry as served to the frontend.
type Catalogue struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Level    string         `json:"level"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Menu is one navigation group as served to the frontend.
type Menu struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Icon       string      `json:"icon,omitempty"`
	Catalogues []Catalogue `json:"catalogues"`
}

// Payload is the navigation document returned to the frontend.
type Payload struct {
	Menus []Menu `json:"menus"`
}

// Service shapes resolver output into the navigation payload. It calls
// the resolver exactly once per request and adds nothing to its
// semantics.
type Service struct {
	resolver ResolverPort
	metrics  MetricsPort
}

// NewService builds Service instance. Metrics may be nil.
func NewService(resolver ResolverPort, metrics MetricsPort) *Service {
	return &Service{resolver: resolver, metrics: metrics}
}

// Navigation resolves the caller's visible tree and converts it to the
// wire shape. Errors pass through untouched so the handler can apply the
// fail-closed contract.
func (s *Service) Navigation(ctx context.Context, id authz.Identity) (Payload, error) {
	start := time.Now()
	tree, err := s.resolver.Resolve(ctx, id)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "unavailable"
		} else if tree.Empty() {
			outcome = "empty"
		}
		s.metrics.ObserveResolution(outcome, time.Since(start))
	}
	if err != nil {
		return Payload{}, err
	}

	payload := Payload{Menus: make([]Menu, 0, len(tree.Menus))}
	for _, menu := range tree.Menus {
		entry := Menu{
			ID:         menu.ID,
			Name:       menu.Name,
			Icon:       menu.Icon,
			Catalogues: make([]Catalogue, 0, len(menu.Catalogues)),
		}
		for _, cat := range menu.Catalogues {
			entry.Catalogues = append(entry.Catalogues, Catalogue{
				ID:       cat.ID,
				Name:     cat.Name,
				Level:    cat.Level.String(),
				Metadata: cat.Metadata,
			})
		}
		payload.Menus = append(payload.Menus, entry)
	}
	return payload, nil
}
