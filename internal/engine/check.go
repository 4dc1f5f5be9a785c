package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/store"
)

// CheckResult is the body of a compatibility check response.
type CheckResult struct {
	Issues     []compat.Issue `json:"issues"`
	Errors     int            `json:"errors"`
	Warnings   int            `json:"warnings"`
	CanPublish bool           `json:"can_publish"`
}

// partRef is one entry of a check request: either an id to resolve or an
// inline part.
type partRef struct {
	slug string
	id   string
	part *compat.Part
}

// Check handles POST /api/compatibility/check
//
// The body maps category slugs to a part id or a part object, either at the
// top level or under "parts". An object carrying only an id is looked up like
// a bare id. Unknown ids are dropped, like parts that were never chosen.
func (h *Handler) Check(c *fiber.Ctx) error {
	refs, err := parseCheckBody(c.Body())
	if err != nil {
		return err
	}

	sel, err := h.resolve(c.UserContext(), refs)
	if err != nil {
		return err
	}

	issues, err := h.evaluator.Evaluate(sel, h.rules.ActiveRules())
	if errors.Is(err, compat.ErrInvalidSelection) {
		return InvalidSelectionError(err.Error())
	}
	if err != nil {
		return err
	}

	canPublish, err := h.policy.Allows(issues)
	if err != nil {
		return err
	}
	errs, warns := compat.CountBySeverity(issues)
	return c.JSON(CheckResult{
		Issues:     issues,
		Errors:     errs,
		Warnings:   warns,
		CanPublish: canPublish,
	})
}

func parseCheckBody(body []byte) ([]partRef, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, InvalidSelectionError("Request body must be a JSON object mapping categories to parts")
	}
	if inner, ok := doc["parts"]; ok {
		doc = nil
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '{' || json.Unmarshal(inner, &doc) != nil {
			return nil, InvalidSelectionError("parts must be a JSON object mapping categories to parts")
		}
	}

	refs := make([]partRef, 0, len(doc))
	for slug, raw := range doc {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		switch raw[0] {
		case '"':
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return nil, InvalidSelectionError(fmt.Sprintf("%s: %v", slug, err))
			}
			if id != "" {
				refs = append(refs, partRef{slug: slug, id: id})
			}
		case '{':
			var p compat.Part
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, InvalidSelectionError(fmt.Sprintf("%s: %v", slug, err))
			}
			if p.ID != "" && p.Specifications == nil {
				refs = append(refs, partRef{slug: slug, id: p.ID})
				continue
			}
			refs = append(refs, partRef{slug: slug, part: &p})
		default:
			return nil, InvalidSelectionError(fmt.Sprintf("%s must be a part id or a part object", slug))
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].slug < refs[j].slug })
	return refs, nil
}

// resolve looks up referenced ids concurrently and assembles the selection.
func (h *Handler) resolve(ctx context.Context, refs []partRef) (compat.Selection, error) {
	parts := make([]*compat.Part, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.resolveLimit)
	for i, ref := range refs {
		if ref.part != nil {
			parts[i] = ref.part
			continue
		}
		g.Go(func() error {
			p, err := h.catalog.GetPart(gctx, ref.id)
			if errors.Is(err, store.ErrNotFound) {
				h.logger.Debug("Dropping unknown part from selection",
					zap.String("category", ref.slug), zap.String("part_id", ref.id))
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve %s part %s: %w", ref.slug, ref.id, err)
			}
			parts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sel := make(compat.Selection, len(refs))
	for i, ref := range refs {
		if parts[i] != nil {
			sel[ref.slug] = parts[i]
		}
	}
	return sel, nil
}
