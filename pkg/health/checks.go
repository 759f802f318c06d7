// Package health probes the pieces a working gateway depends on: the server
// itself, the allowed root directories and the audit database.
package health

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

type RootStatus struct {
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
}

type HealthStatus struct {
	ServerReachable bool         `json:"server_reachable"`
	Roots           []RootStatus `json:"roots"`
	AuditDBPresent  bool         `json:"audit_db_present"`
	Healthy         bool         `json:"healthy"`
	Issues          []string     `json:"issues,omitempty"`
}

// Check probes the server's health endpoint, every allowed root and the
// audit database file. An empty serverURL or dbPath skips that probe.
func Check(serverURL string, roots []string, dbPath string) *HealthStatus {
	status := &HealthStatus{
		Healthy: true,
		Issues:  []string{},
	}

	if serverURL != "" {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(serverURL + "/v1/health")
		if err != nil {
			status.ServerReachable = false
			status.Healthy = false
			status.Issues = append(status.Issues, fmt.Sprintf("cannot reach server: %v", err))
		} else {
			resp.Body.Close()
			status.ServerReachable = resp.StatusCode == 200
			if !status.ServerReachable {
				status.Healthy = false
				status.Issues = append(status.Issues, fmt.Sprintf("server unhealthy: %d", resp.StatusCode))
			}
		}
	}

	if len(roots) == 0 {
		status.Healthy = false
		status.Issues = append(status.Issues, "no allowed directories exist on this host")
	}
	for _, root := range roots {
		rs := checkRoot(root)
		status.Roots = append(status.Roots, rs)
		if !rs.Exists {
			status.Healthy = false
			status.Issues = append(status.Issues, fmt.Sprintf("allowed directory missing: %s", root))
		} else if !rs.Writable {
			status.Healthy = false
			status.Issues = append(status.Issues, fmt.Sprintf("allowed directory not writable: %s", root))
		}
	}

	if dbPath != "" {
		if _, err := os.Stat(dbPath); err != nil {
			status.AuditDBPresent = false
			status.Healthy = false
			status.Issues = append(status.Issues, fmt.Sprintf("audit database missing: %s", dbPath))
		} else {
			status.AuditDBPresent = true
		}
	}

	return status
}

func checkRoot(root string) RootStatus {
	rs := RootStatus{Path: root}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return rs
	}
	rs.Exists = true

	// Probe writability the direct way: create and remove a scratch file.
	f, err := os.CreateTemp(root, ".fsgate-probe-*")
	if err != nil {
		return rs
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	rs.Writable = true
	return rs
}
