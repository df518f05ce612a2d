// Package cluster manages the cluster metadata schema. It is initialized only
// when a clustering protocol engine is enabled, and requires the system
// database to be bootstrapped first because the metadata lives inside it.
package cluster

import (
	"database/sql"
	"fmt"
)

const createMetadataTables = `
CREATE TABLE IF NOT EXISTS cluster_peers (
    node_id   TEXT PRIMARY KEY,
    host      TEXT NOT NULL,
    port      INTEGER NOT NULL,
    joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS cluster_ring (
    token    TEXT PRIMARY KEY,
    node_id  TEXT NOT NULL REFERENCES cluster_peers(node_id)
)`

// InitMetadata creates the cluster metadata tables over the internal
// administrative connection.
func InitMetadata(conn *sql.DB) error {
	if conn == nil {
		return fmt.Errorf("cluster: nil internal connection")
	}
	if _, err := conn.Exec(createMetadataTables); err != nil {
		return fmt.Errorf("cluster: create metadata tables: %w", err)
	}
	return nil
}

// RegisterPeer records a peer in the metadata tables.
func RegisterPeer(conn *sql.DB, nodeID, host string, port int) error {
	_, err := conn.Exec(
		`INSERT INTO cluster_peers (node_id, host, port) VALUES (?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET host = excluded.host, port = excluded.port`,
		nodeID, host, port,
	)
	if err != nil {
		return fmt.Errorf("cluster: register peer %q: %w", nodeID, err)
	}
	return nil
}

// Peers returns the registered peer node IDs.
func Peers(conn *sql.DB) ([]string, error) {
	rows, err := conn.Query(`SELECT node_id FROM cluster_peers ORDER BY node_id`)
	if err != nil {
		return nil, fmt.Errorf("cluster: list peers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("cluster: scan peer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
