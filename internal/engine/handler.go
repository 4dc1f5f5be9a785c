package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/store"
)

// Catalog is the read side of the part catalog.
type Catalog interface {
	ListCategories(ctx context.Context) ([]store.Category, error)
	ListParts(ctx context.Context, f store.PartFilter) ([]*compat.Part, error)
	GetPart(ctx context.Context, id string) (*compat.Part, error)
}

// RuleSet supplies the rules an evaluation runs against.
type RuleSet interface {
	ActiveRules() []*compat.Rule
}

type Options struct {
	Policy *compat.PublishPolicy
	// ResolveConcurrency bounds parallel part lookups per check request.
	ResolveConcurrency int
	Logger             *zap.Logger
}

type Handler struct {
	catalog      Catalog
	rules        RuleSet
	evaluator    *compat.Evaluator
	policy       *compat.PublishPolicy
	resolveLimit int
	logger       *zap.Logger
}

func NewHandler(catalog Catalog, rules RuleSet, opts Options) (*Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		var err error
		if policy, err = compat.NewPublishPolicy(""); err != nil {
			return nil, err
		}
	}
	limit := opts.ResolveConcurrency
	if limit <= 0 {
		limit = 1
	}
	return &Handler{
		catalog:      catalog,
		rules:        rules,
		evaluator:    compat.NewEvaluator(logger),
		policy:       policy,
		resolveLimit: limit,
		logger:       logger,
	}, nil
}

// ListCategories handles GET /api/categories
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// CategoryFields handles GET /api/categories/:slug/fields
func (h *Handler) CategoryFields(c *fiber.Ctx) error {
	slug := c.Params("slug")
	fields, ok := compat.CategoryFields[slug]
	if !ok {
		return NewAppError("NOT_FOUND", 404, fmt.Sprintf("Unknown category: %s", slug))
	}
	return c.JSON(fields)
}

// ListParts handles GET /api/parts
func (h *Handler) ListParts(c *fiber.Ctx) error {
	parts, err := h.catalog.ListParts(c.UserContext(), store.PartFilter{
		CategoryID: c.Query("category_id"),
		Category:   c.Query("category"),
	})
	if err != nil {
		return err
	}
	return c.JSON(parts)
}

// GetPart handles GET /api/parts/:id
func (h *Handler) GetPart(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.catalog.GetPart(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundError("part", id)
	}
	if err != nil {
		return err
	}
	return c.JSON(p)
}
