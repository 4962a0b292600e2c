package db

import (
	"context"
	"fmt"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRole inserts a role for a company.
func (db *DB) CreateRole(ctx context.Context, r *types.Role) (*types.Role, error) {
	var created types.Role
	err := db.pool.QueryRow(ctx,
		`INSERT INTO roles (company_id, title, jd_text, requirements, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, company_id, title, jd_text, requirements, status, created_at`,
		r.CompanyID, r.Title, r.JDText, r.Requirements, r.Status,
	).Scan(&created.ID, &created.CompanyID, &created.Title, &created.JDText,
		&created.Requirements, &created.Status, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &created, nil
}

// GetRole retrieves a role within a company.
func (db *DB) GetRole(ctx context.Context, companyID, id uuid.UUID) (*types.Role, error) {
	var r types.Role
	err := db.pool.QueryRow(ctx,
		`SELECT id, company_id, title, jd_text, requirements, status, created_at
		 FROM roles WHERE company_id = $1 AND id = $2`,
		companyID, id,
	).Scan(&r.ID, &r.CompanyID, &r.Title, &r.JDText, &r.Requirements, &r.Status, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}

// ListOpenRoles retrieves a company's open roles.
func (db *DB) ListOpenRoles(ctx context.Context, companyID uuid.UUID) ([]types.Role, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, company_id, title, jd_text, requirements, status, created_at
		 FROM roles WHERE company_id = $1 AND status = 'open'
		 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Title, &r.JDText, &r.Requirements, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
