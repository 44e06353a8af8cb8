package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TenantPool hands out connections scoped to one organization. Row-level
// security policies on the tenant tables read the app.current_org_id session
// variable, so the variable must be set before the first tenant-scoped
// statement and reset before the connection returns to the pool — a stale
// value would leak the previous tenant's context to the next borrower.
type TenantPool struct {
	db *sql.DB
}

func NewTenantPool(db *sql.DB) *TenantPool {
	return &TenantPool{db: db}
}

// DB exposes the underlying pool for paths that run with the service role
// (webhook ingestion, maintenance jobs) and carry organization ids
// explicitly in their statements.
func (p *TenantPool) DB() *sql.DB {
	return p.db
}

// WithOrg acquires a dedicated connection, sets the RLS session variable,
// runs fn, and resets the variable before releasing the connection. The
// reset runs even when fn fails.
func (p *TenantPool) WithOrg(ctx context.Context, orgID string, fn func(Querier) error) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire tenant connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT set_config('app.current_org_id', $1, false)", orgID); err != nil {
		return fmt.Errorf("set tenant context: %w", err)
	}
	defer func() {
		// Reset must not be skipped: the connection goes back to the pool.
		conn.ExecContext(context.WithoutCancel(ctx), "RESET app.current_org_id")
	}()

	return fn(conn)
}

// WithAdmin runs fn on a connection flagged with the platform-operator role,
// which the RLS policies treat as a bypass. Cross-tenant admin reads only.
func (p *TenantPool) WithAdmin(ctx context.Context, fn func(Querier) error) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire admin connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT set_config('app.user_role', 'sb_admin', false)"); err != nil {
		return fmt.Errorf("set admin context: %w", err)
	}
	defer func() {
		conn.ExecContext(context.WithoutCancel(ctx), "RESET app.user_role")
	}()

	return fn(conn)
}
