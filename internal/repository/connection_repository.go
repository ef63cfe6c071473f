package repository

import (
	"database/sql"
	"fmt"

	"github.com/curatarr/curatarr/internal/models"
)

type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `id, name, url, api_key, grace_days, retention_days, ai_rules, ai_rule_proposals`

func scanConnection(row interface {
	Scan(dest ...interface{}) error
}) (*models.ServiceConnection, error) {
	conn := &models.ServiceConnection{}
	err := row.Scan(
		&conn.ID, &conn.Name, &conn.URL, &conn.APIKey,
		&conn.GraceDays, &conn.RetentionDays, &conn.AIRules, &conn.AIRuleProposals,
	)
	return conn, err
}

// GetByName returns the connection row or nil when the service is not set up.
func (r *ConnectionRepository) GetByName(name string) (*models.ServiceConnection, error) {
	row := r.db.QueryRow(`SELECT `+connectionColumns+` FROM service_connections WHERE name = $1`, name)
	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", name, err)
	}
	return conn, nil
}

func (r *ConnectionRepository) List() ([]*models.ServiceConnection, error) {
	rows, err := r.db.Query(`SELECT ` + connectionColumns + ` FROM service_connections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()
	var conns []*models.ServiceConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepository) Save(conn *models.ServiceConnection) error {
	query := `
		INSERT INTO service_connections (name, url, api_key, grace_days, retention_days, ai_rules, ai_rule_proposals)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			url = EXCLUDED.url,
			api_key = EXCLUDED.api_key,
			grace_days = EXCLUDED.grace_days,
			retention_days = EXCLUDED.retention_days,
			ai_rules = EXCLUDED.ai_rules,
			ai_rule_proposals = EXCLUDED.ai_rule_proposals
		RETURNING id`
	err := r.db.QueryRow(query,
		conn.Name, conn.URL, conn.APIKey, conn.GraceDays, conn.RetentionDays,
		conn.AIRules, conn.AIRuleProposals,
	).Scan(&conn.ID)
	if err != nil {
		return fmt.Errorf("save connection %s: %w", conn.Name, err)
	}
	return nil
}

func (r *ConnectionRepository) SaveRules(name, rules string) error {
	if _, err := r.db.Exec(`UPDATE service_connections SET ai_rules = $1 WHERE name = $2`, rules, name); err != nil {
		return fmt.Errorf("save rules for %s: %w", name, err)
	}
	return nil
}

// SaveProposals replaces the pending proposal document. Pass nil to clear it.
func (r *ConnectionRepository) SaveProposals(name string, proposals *string) error {
	if _, err := r.db.Exec(`UPDATE service_connections SET ai_rule_proposals = $1 WHERE name = $2`, proposals, name); err != nil {
		return fmt.Errorf("save proposals for %s: %w", name, err)
	}
	return nil
}
