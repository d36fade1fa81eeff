package database

import (
	"context"
	"fmt"
)

// Organization is a queue partition such as a department or university
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListOrganizations returns all organizations ordered by id
func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT org_id, name FROM organizations ORDER BY org_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// EnsureOrganization creates the organization if its name is new and
// returns its id either way.
func (s *Store) EnsureOrganization(ctx context.Context, name string) (int64, error) {
	insert := "INSERT INTO organizations (name) VALUES (?) ON CONFLICT(name) DO NOTHING"
	if s.driver == "mysql" {
		insert = "INSERT IGNORE INTO organizations (name) VALUES (?)"
	}
	if _, err := s.db.ExecContext(ctx, insert, name); err != nil {
		return 0, fmt.Errorf("failed to insert organization: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT org_id FROM organizations WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to query organization id: %w", err)
	}
	return id, nil
}

// OrganizationExists reports whether an organization with the id is stored
func (s *Store) OrganizationExists(ctx context.Context, orgID int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations WHERE org_id = ?", orgID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query organization: %w", err)
	}
	return n > 0, nil
}
