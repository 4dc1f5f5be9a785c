package admin

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/engine"
	"pcbuild-backend/internal/store"
)

// partInput is the body of part create and update requests. Pointer fields
// distinguish "absent" from "zero" for updates.
type partInput struct {
	CategoryID     *string        `json:"category_id"`
	Category       *string        `json:"category"`
	Brand          *string        `json:"brand"`
	Model          *string        `json:"model"`
	Name           *string        `json:"name"`
	Price          *float64       `json:"price"`
	Specifications map[string]any `json:"specifications"`
}

func (h *Handler) CreatePart(c *fiber.Ctx) error {
	var in partInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	p := &compat.Part{}
	if err := h.applyPartInput(c, p, &in); err != nil {
		return err
	}
	if err := h.store.CreatePart(c.UserContext(), p); err != nil {
		return err
	}
	return c.Status(201).JSON(p)
}

func (h *Handler) UpdatePart(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.store.GetPart(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("part", id)
	}
	if err != nil {
		return err
	}

	var in partInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	if in.Specifications == nil && (in.CategoryID != nil || in.Category != nil) {
		// specifications are re-checked against the new category
		in.Specifications = p.Specifications
	}
	if err := h.applyPartInput(c, p, &in); err != nil {
		return err
	}
	if err := h.store.UpdatePart(c.UserContext(), p); err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) DeletePart(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.store.DeletePart(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("part", id)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "deleted": true})
}

func (h *Handler) applyPartInput(c *fiber.Ctx, p *compat.Part, in *partInput) error {
	var details []engine.ErrorDetail

	categoryRef := ""
	switch {
	case in.CategoryID != nil:
		categoryRef = *in.CategoryID
	case in.Category != nil:
		categoryRef = *in.Category
	}
	if categoryRef != "" {
		cat, err := h.store.GetCategory(c.UserContext(), categoryRef)
		if errors.Is(err, store.ErrNotFound) {
			details = append(details, engine.ErrorDetail{Field: "category_id", Message: "unknown category: " + categoryRef})
		} else if err != nil {
			return err
		} else {
			p.CategoryID, p.Category = cat.ID, cat.Slug
		}
	}
	if p.CategoryID == "" && len(details) == 0 {
		details = append(details, engine.ErrorDetail{Field: "category_id", Message: "category_id is required"})
	}

	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Model != nil {
		p.Model = strings.TrimSpace(*in.Model)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if p.Name == "" {
		details = append(details, engine.ErrorDetail{Field: "name", Message: "name is required"})
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if p.Price < 0 {
		details = append(details, engine.ErrorDetail{Field: "price", Message: "price must not be negative"})
	}

	if in.Specifications != nil && p.Category != "" {
		specs, err := compat.NormalizeSpecifications(p.Category, in.Specifications)
		if err != nil {
			details = append(details, engine.ErrorDetail{Field: "specifications", Message: err.Error()})
		} else {
			p.Specifications = specs
		}
	}

	if len(details) > 0 {
		return engine.ValidationError(details)
	}
	return nil
}
