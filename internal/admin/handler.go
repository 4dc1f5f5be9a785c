package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/engine"
	"pcbuild-backend/internal/metadata"
	"pcbuild-backend/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	logger   *zap.Logger
}

func NewHandler(s *store.Store, reg *metadata.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: s, registry: reg, logger: logger}
}

// RegisterAdminRoutes mounts rule and part management behind mw
// (authentication and the admin role check).
func RegisterAdminRoutes(app *fiber.App, h *Handler, mw ...fiber.Handler) {
	rules := app.Group("/api/compatibility/rules", mw...)
	rules.Get("/", h.ListRules)
	rules.Get("/:id", h.GetRule)
	rules.Post("/", h.CreateRule)
	rules.Put("/:id", h.UpdateRule)
	rules.Delete("/:id", h.DeleteRule)

	parts := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler(nil), mw...), handler)
	}
	app.Post("/api/parts", parts(h.CreatePart)...)
	app.Put("/api/parts/:id", parts(h.UpdatePart)...)
	app.Delete("/api/parts/:id", parts(h.DeletePart)...)
}

// --- Rule Endpoints ---

// ListRules serves the registry's rule set, the one checks are evaluated
// against. Every mutation below reloads it from the store.
func (h *Handler) ListRules(c *fiber.Ctx) error {
	rules := h.registry.AllRules()
	if rules == nil {
		rules = []*compat.Rule{}
	}
	return c.JSON(rules)
}

func (h *Handler) GetRule(c *fiber.Ctx) error {
	id := c.Params("id")
	r := h.registry.GetRule(id)
	if r == nil {
		return engine.NotFoundError("rule", id)
	}
	return c.JSON(r)
}

func (h *Handler) CreateRule(c *fiber.Ctx) error {
	var r compat.Rule
	if err := json.Unmarshal(c.Body(), &r); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	r.ID = ""

	if err := r.Validate(); err != nil {
		return ruleValidationError(err)
	}

	if err := h.store.CreateRule(c.UserContext(), &r); err != nil {
		return h.ruleWriteError(err, r.Number)
	}
	if err := h.reload(c); err != nil {
		return err
	}
	return c.Status(201).JSON(r)
}

// UpdateRule applies a partial update: only keys present in the body change.
func (h *Handler) UpdateRule(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.store.GetRule(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("rule", id)
	}
	if err != nil {
		return err
	}

	var patch map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &patch); err != nil || patch == nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	configTouched, err := applyRulePatch(r, patch)
	if err != nil {
		return err
	}

	// A disabled rule may keep a broken config until someone fixes it.
	if err := r.Validate(); err != nil {
		brokenButParked := !r.Active && !configTouched && r.Config == nil
		if !brokenButParked {
			return ruleValidationError(err)
		}
	}

	if err := h.store.UpdateRule(c.UserContext(), r); err != nil {
		return h.ruleWriteError(err, r.Number)
	}
	if err := h.reload(c); err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *Handler) DeleteRule(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.store.DeleteRule(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("rule", id)
	}
	if err != nil {
		return err
	}
	if err := h.reload(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "deleted": true})
}

func applyRulePatch(r *compat.Rule, patch map[string]json.RawMessage) (configTouched bool, err error) {
	fields := map[string]any{
		"rule_number":      &r.Number,
		"name":             &r.Name,
		"description":      &r.Description,
		"severity":         &r.Severity,
		"message_template": &r.MessageTemplate,
		"is_active":        &r.Active,
	}
	for key, raw := range patch {
		if key == "rule_config" {
			r.SetRawConfig(raw)
			configTouched = true
			continue
		}
		dst, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return false, engine.InvalidPayloadError(fmt.Sprintf("Invalid value for %s", key))
		}
	}
	return configTouched, nil
}

func ruleValidationError(err error) error {
	return engine.ValidationError([]engine.ErrorDetail{{Rule: "rule", Message: err.Error()}})
}

func (h *Handler) ruleWriteError(err error, number int) error {
	if errors.Is(err, store.ErrUniqueViolation) {
		return engine.ConflictError(fmt.Sprintf("Rule number %d already exists", number))
	}
	if errors.Is(err, store.ErrNotFound) {
		return engine.NewAppError("NOT_FOUND", 404, "Rule not found")
	}
	return err
}

func (h *Handler) reload(c *fiber.Ctx) error {
	if err := metadata.Reload(c.UserContext(), h.store, h.registry, h.logger); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}
	return nil
}
