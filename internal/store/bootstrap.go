package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/config"
)

// defaultCategories are the category names seeded into an empty catalog.
// Their slugs match the compat category constants.
var defaultCategories = []string{
	"CPU", "GPU", "Motherboard", "RAM", "Storage", "PSU", "Case", "Cooling",
}

// Bootstrap creates the system tables and seeds the category list and the
// initial admin account when they are missing.
func (s *Store) Bootstrap(ctx context.Context, admin config.AdminConfig, logger *zap.Logger) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SystemTablesSQL()); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}
	if err := s.seedCategories(ctx, logger); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if err := s.seedAdminUser(ctx, admin, logger); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}

func (s *Store) seedCategories(ctx context.Context, logger *zap.Logger) error {
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM _part_categories").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i, name := range defaultCategories {
		_, err := s.DB.ExecContext(ctx,
			s.Q(`INSERT INTO _part_categories (id, name, slug, sort_order) VALUES ($1, $2, $3, $4)`),
			uuid.NewString(), name, compat.Slugify(name), i+1)
		if err != nil {
			return err
		}
	}
	logger.Info("Seeded part categories", zap.Int("count", len(defaultCategories)))
	return nil
}

func (s *Store) seedAdminUser(ctx context.Context, admin config.AdminConfig, logger *zap.Logger) error {
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM _users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx,
		s.Q(`INSERT INTO _users (id, email, password_hash, roles) VALUES ($1, $2, $3, $4)`),
		uuid.NewString(), admin.Email, string(hash), s.Dialect.ArrayParam([]string{"admin"}),
	)
	if err != nil {
		return err
	}

	logger.Warn("Default admin user created, change the password immediately",
		zap.String("email", admin.Email))
	return nil
}
