package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pcbuild-backend/internal/compat"
)

// Category is a row of _part_categories.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

// PartFilter narrows ListParts. Empty fields match everything.
type PartFilter struct {
	CategoryID string
	Category   string // slug
}

type scanner interface {
	Scan(dest ...any) error
}

const partSelect = `SELECT p.id, p.category_id, c.slug, p.brand, p.model, p.name, p.price, p.specifications
FROM _parts p JOIN _part_categories c ON c.id = p.category_id`

func scanPart(sc scanner) (*compat.Part, error) {
	var p compat.Part
	var specs []byte
	if err := sc.Scan(&p.ID, &p.CategoryID, &p.Category, &p.Brand, &p.Model, &p.Name, &p.Price, &specs); err != nil {
		return nil, err
	}
	p.Specifications = map[string]any{}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return nil, fmt.Errorf("decode specifications of part %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// validID reports whether id can be a primary key. Malformed ids are simply
// not found rather than a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ListCategories returns all categories in display order.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, slug, sort_order FROM _part_categories ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory looks a category up by id or slug.
func (s *Store) GetCategory(ctx context.Context, idOrSlug string) (*Category, error) {
	query := "SELECT id, name, slug, sort_order FROM _part_categories WHERE slug = $1"
	if validID(idOrSlug) {
		query = "SELECT id, name, slug, sort_order FROM _part_categories WHERE id = $1"
	}
	var c Category
	err := s.DB.QueryRowContext(ctx, s.Q(query), idOrSlug).Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// ListParts returns catalog parts ordered by category then name.
func (s *Store) ListParts(ctx context.Context, f PartFilter) ([]*compat.Part, error) {
	pb := s.Dialect.NewParamBuilder()
	query := partSelect + " WHERE 1=1"
	if f.CategoryID != "" {
		if !validID(f.CategoryID) {
			return []*compat.Part{}, nil
		}
		query += " AND p.category_id = " + pb.Add(f.CategoryID)
	}
	if f.Category != "" {
		query += " AND c.slug = " + pb.Add(f.Category)
	}
	query += " ORDER BY c.sort_order, p.name"

	rows, err := s.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	out := []*compat.Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPart returns the part with the given id, or ErrNotFound.
func (s *Store) GetPart(ctx context.Context, id string) (*compat.Part, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	p, err := scanPart(s.DB.QueryRowContext(ctx, s.Q(partSelect+" WHERE p.id = $1"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	return p, nil
}

// CreatePart inserts p and assigns its id. p.CategoryID must be set.
func (s *Store) CreatePart(ctx context.Context, p *compat.Part) error {
	specs, err := json.Marshal(specsOrEmpty(p.Specifications))
	if err != nil {
		return fmt.Errorf("encode specifications: %w", err)
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx, s.Q(
		`INSERT INTO _parts (id, category_id, brand, model, name, price, specifications)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		id, p.CategoryID, p.Brand, p.Model, p.Name, p.Price, string(specs))
	if err != nil {
		return fmt.Errorf("create part: %w", s.Dialect.MapError(err))
	}
	p.ID = id
	return nil
}

// UpdatePart replaces every column of an existing part.
func (s *Store) UpdatePart(ctx context.Context, p *compat.Part) error {
	if !validID(p.ID) {
		return ErrNotFound
	}
	specs, err := json.Marshal(specsOrEmpty(p.Specifications))
	if err != nil {
		return fmt.Errorf("encode specifications: %w", err)
	}
	n, err := Exec(ctx, s.DB, s.Q(fmt.Sprintf(
		`UPDATE _parts SET category_id = $1, brand = $2, model = $3, name = $4, price = $5,
		 specifications = $6, updated_at = %s WHERE id = $7`, s.Dialect.NowExpr())),
		p.CategoryID, p.Brand, p.Model, p.Name, p.Price, string(specs), p.ID)
	if err != nil {
		return fmt.Errorf("update part: %w", s.Dialect.MapError(err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePart removes a part.
func (s *Store) DeletePart(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	n, err := Exec(ctx, s.DB, s.Q("DELETE FROM _parts WHERE id = $1"), id)
	if err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func specsOrEmpty(specs map[string]any) map[string]any {
	if specs == nil {
		return map[string]any{}
	}
	return specs
}
