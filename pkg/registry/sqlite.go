package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Client using a local SQLite database. It is suitable
// for single-instance deployments that manage their limits locally instead of
// against a remote registry service, and it backs the CLI's admin commands.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent read
// performance and periodic checkpointing to balance write performance with
// durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	// prepared statements for the hot read paths
	getEndpointStmt   *sql.Stmt
	listRegisteredAll *sql.Stmt
	listRegisteredOne *sql.Stmt
	listProjectStmt   *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite registry backend.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite registry backend with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig creates a SQLite registry backend with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS endpoints (
		id TEXT PRIMARY KEY,
		service_id TEXT NOT NULL,
		region_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS registered_limits (
		service_id TEXT NOT NULL,
		region_id TEXT NOT NULL,
		resource_name TEXT NOT NULL,
		default_limit INTEGER NOT NULL,
		PRIMARY KEY (service_id, region_id, resource_name)
	);

	CREATE TABLE IF NOT EXISTS project_limits (
		service_id TEXT NOT NULL,
		region_id TEXT NOT NULL,
		resource_name TEXT NOT NULL,
		project_id TEXT NOT NULL,
		resource_limit INTEGER NOT NULL,
		PRIMARY KEY (service_id, region_id, resource_name, project_id)
	);

	CREATE INDEX IF NOT EXISTS idx_project_limits_project ON project_limits(project_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for the read paths.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getEndpointStmt, err = s.db.Prepare(`
		SELECT id, service_id, region_id FROM endpoints WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare endpoint statement: %w", err)
	}

	s.listRegisteredAll, err = s.db.Prepare(`
		SELECT resource_name, default_limit FROM registered_limits
		WHERE service_id = ? AND region_id = ?
		ORDER BY resource_name
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare registered-limits statement: %w", err)
	}

	s.listRegisteredOne, err = s.db.Prepare(`
		SELECT resource_name, default_limit FROM registered_limits
		WHERE service_id = ? AND region_id = ? AND resource_name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare registered-limit statement: %w", err)
	}

	s.listProjectStmt, err = s.db.Prepare(`
		SELECT project_id, resource_name, resource_limit FROM project_limits
		WHERE service_id = ? AND region_id = ? AND resource_name = ? AND project_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare project-limits statement: %w", err)
	}

	return nil
}

// PutEndpoint inserts or replaces an endpoint.
func (s *SQLiteStore) PutEndpoint(ctx context.Context, endpoint Endpoint) error {
	if endpoint.ID == "" {
		return fmt.Errorf("endpoint id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO endpoints (id, service_id, region_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			service_id = excluded.service_id,
			region_id = excluded.region_id
	`, endpoint.ID, endpoint.ServiceID, endpoint.RegionID)
	if err != nil {
		return fmt.Errorf("failed to save endpoint: %w", err)
	}
	return nil
}

// PutRegisteredLimit inserts or replaces the default limit for a resource.
func (s *SQLiteStore) PutRegisteredLimit(ctx context.Context, serviceID, regionID string, limit RegisteredLimit) error {
	if limit.ResourceName == "" {
		return fmt.Errorf("resource name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registered_limits (service_id, region_id, resource_name, default_limit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (service_id, region_id, resource_name) DO UPDATE SET
			default_limit = excluded.default_limit
	`, serviceID, regionID, limit.ResourceName, limit.DefaultLimit)
	if err != nil {
		return fmt.Errorf("failed to save registered limit: %w", err)
	}
	return nil
}

// PutProjectLimit inserts or replaces a project override limit.
func (s *SQLiteStore) PutProjectLimit(ctx context.Context, serviceID, regionID string, limit ProjectLimit) error {
	if limit.ResourceName == "" {
		return fmt.Errorf("resource name cannot be empty")
	}
	if limit.ProjectID == "" {
		return fmt.Errorf("project id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_limits (service_id, region_id, resource_name, project_id, resource_limit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (service_id, region_id, resource_name, project_id) DO UPDATE SET
			resource_limit = excluded.resource_limit
	`, serviceID, regionID, limit.ResourceName, limit.ProjectID, limit.ResourceLimit)
	if err != nil {
		return fmt.Errorf("failed to save project limit: %w", err)
	}
	return nil
}

// DeleteRegisteredLimit removes the default limit for a resource.
func (s *SQLiteStore) DeleteRegisteredLimit(ctx context.Context, serviceID, regionID, resourceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM registered_limits
		WHERE service_id = ? AND region_id = ? AND resource_name = ?
	`, serviceID, regionID, resourceName)
	if err != nil {
		return fmt.Errorf("failed to delete registered limit: %w", err)
	}
	return nil
}

// DeleteProjectLimit removes a project override limit.
func (s *SQLiteStore) DeleteProjectLimit(ctx context.Context, serviceID, regionID, resourceName, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM project_limits
		WHERE service_id = ? AND region_id = ? AND resource_name = ? AND project_id = ?
	`, serviceID, regionID, resourceName, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project limit: %w", err)
	}
	return nil
}

// GetEndpoint resolves the deployment endpoint by its identifier.
func (s *SQLiteStore) GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var endpoint Endpoint
	err := s.getEndpointStmt.QueryRowContext(ctx, endpointID).Scan(
		&endpoint.ID,
		&endpoint.ServiceID,
		&endpoint.RegionID,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("endpoint %q: %w", endpointID, ErrEndpointNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoint: %w", err)
	}
	return &endpoint, nil
}

// ListRegisteredLimits returns the registered limits in scope, optionally
// filtered to a single resource name.
func (s *SQLiteStore) ListRegisteredLimits(ctx context.Context, serviceID, regionID, resourceName string) ([]RegisteredLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rows *sql.Rows
		err  error
	)
	if resourceName == "" {
		rows, err = s.listRegisteredAll.QueryContext(ctx, serviceID, regionID)
	} else {
		rows, err = s.listRegisteredOne.QueryContext(ctx, serviceID, regionID, resourceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list registered limits: %w", err)
	}
	defer rows.Close()

	var limits []RegisteredLimit
	for rows.Next() {
		var limit RegisteredLimit
		if err := rows.Scan(&limit.ResourceName, &limit.DefaultLimit); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		limits = append(limits, limit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return limits, nil
}

// ListProjectLimits returns the project override limits for a resource in scope.
func (s *SQLiteStore) ListProjectLimits(ctx context.Context, serviceID, regionID, resourceName, projectID string) ([]ProjectLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listProjectStmt.QueryContext(ctx, serviceID, regionID, resourceName, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project limits: %w", err)
	}
	defer rows.Close()

	var limits []ProjectLimit
	for rows.Next() {
		var limit ProjectLimit
		if err := rows.Scan(&limit.ProjectID, &limit.ResourceName, &limit.ResourceLimit); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		limits = append(limits, limit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return limits, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.getEndpointStmt != nil {
			s.getEndpointStmt.Close()
		}
		if s.listRegisteredAll != nil {
			s.listRegisteredAll.Close()
		}
		if s.listRegisteredOne != nil {
			s.listRegisteredOne.Close()
		}
		if s.listProjectStmt != nil {
			s.listProjectStmt.Close()
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
