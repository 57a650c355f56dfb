package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog *config.CatalogHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	catalog *config.CatalogHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("app.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var entry *config.CatalogEntry
	if found, ok := s.catalog.Get().Lookup(name); ok {
		entry = &found
	}
	appURL, err := validateURL(req.URL, entry)
	if err != nil {
		return nil, err
	}

	a := &domain.App{
		ID:        s.genID.Generate().Int64(),
		CreatorID: creatorID,
		Name:      name,
		URL:       appURL,
		CreatedAt: s.clock.Now(),
	}
	if entry != nil {
		a.Name = entry.Name
		a.CatalogKey = entry.Slug()
	}

	if err := s.repo.Insert(ctx, s.db, a); err != nil {
		return nil, err
	}

	resp := toResponse(a)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, creatorID string) ([]domain.Response, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}

	items, err := s.repo.ListByCreator(ctx, s.db, creatorID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, creatorID, id string) (*domain.Response, error) {
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := s.GetOwned(ctx, creatorID, appID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(a)
	return &resp, nil
}

func (s *Service) GetOwned(ctx context.Context, creatorID string, id int64) (*domain.App, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}

	a, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.CreatorID != creatorID {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, creatorID, id string) error {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return domain.ErrInvalidCreator
	}
	appID, err := parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.DeleteOwned(ctx, s.db, creatorID, appID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("app deleted", zap.Int64("app_id", appID), zap.String("creator_id", creatorID))
	return nil
}

func (s *Service) Catalog() []config.CatalogEntry {
	return s.catalog.Get().Entries()
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id.Int64() <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func toResponse(a *domain.App) domain.Response {
	return domain.Response{
		ID:         snowflake.ID(a.ID).String(),
		CreatorID:  a.CreatorID,
		Name:       a.Name,
		URL:        a.URL,
		CatalogKey: a.CatalogKey,
		CreatedAt:  a.CreatedAt,
	}
}
