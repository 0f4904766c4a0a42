package db

import (
	"context"
	"fmt"

	"wedge.io/wedge/lib/appcontext"
)

// DefaultRoleACLTable is the table read by RoleStore
const DefaultRoleACLTable = "fw_role_acl"

// RoleStore reads the role ACL list from the database
type RoleStore struct {
	q     Querier
	table string
}

// NewRoleStore returns a RoleStore reading DefaultRoleACLTable through q
func NewRoleStore(q Querier) *RoleStore {
	return &RoleStore{q: q, table: DefaultRoleACLTable}
}

// LoadACL returns the ACL entries ordered by id
func (s *RoleStore) LoadACL(ctx context.Context) ([]appcontext.RoleACL, error) {
	sql := fmt.Sprintf("SELECT role, pattern FROM %s ORDER BY id", s.table)
	rows, err := Query(ctx, s.q, sql)
	if err != nil {
		return nil, fmt.Errorf("cannot query %s: %w", s.table, err)
	}
	defer rows.Close()

	var acl []appcontext.RoleACL
	for rows.Next() {
		var role, pattern string
		if err := rows.Scan(&role, &pattern); err != nil {
			return nil, fmt.Errorf("cannot scan %s row: %w", s.table, err)
		}
		entry, err := appcontext.NewRoleACL(role, pattern)
		if err != nil {
			return nil, err
		}
		acl = append(acl, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", s.table, err)
	}
	return acl, nil
}

// Refresh loads the ACL entries into app
func (s *RoleStore) Refresh(ctx context.Context, app *appcontext.ApplicationContext) error {
	acl, err := s.LoadACL(ctx)
	if err != nil {
		return err
	}
	app.SetRoleACL(acl)
	return nil
}
