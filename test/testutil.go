//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/coregx/roach"
)

const cockroachImage = "cockroachdb/cockroach:v25.2.2"

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	DB        *roach.DB
	DSN       string
	Container testcontainers.Container
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// SetupCockroachTestDB starts a single insecure CockroachDB node.
// COCKROACH_TEST_DSN points the tests at an existing cluster instead.
func SetupCockroachTestDB(t *testing.T, opts ...roach.Option) *DatabaseSetup {
	t.Helper()
	ctx := context.Background()

	if dsn := os.Getenv("COCKROACH_TEST_DSN"); dsn != "" {
		db, err := roach.Open("postgres", dsn, opts...)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db, DSN: dsn}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cockroachImage,
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			Cmd:          []string{"start-single-node", "--insecure"},
			WaitingFor: wait.ForHTTP("/health?ready=1").
				WithPort("8080/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skip("Docker not available for CockroachDB integration tests: " + err.Error())
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "26257/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://root@%s:%s/defaultdb?sslmode=disable", host, port.Port())
	db, err := roach.Open("postgres", dsn, opts...)
	require.NoError(t, err)

	return &DatabaseSetup{DB: db, DSN: dsn, Container: container}
}

// Users table used across the integration tests.
var (
	users     = roach.NewTable("users")
	userID    = roach.NewColumn[int64](users, "id")
	userName  = roach.NewColumn[string](users, "name")
	userEmail = roach.NewColumn[string](users, "email")
)

type user struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

// CreateUsersTable creates the users table if needed and empties it. Rows are
// deleted rather than the table dropped so cached read statements stay valid.
func CreateUsersTable(t *testing.T, db *roach.DB) {
	t.Helper()
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id INT8 PRIMARY KEY,
			name STRING NOT NULL,
			email STRING NOT NULL DEFAULT 'unknown'
		)
	`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM users WHERE true`)
	require.NoError(t, err)
}

// FetchUsers reads every user ordered by id.
func FetchUsers(t *testing.T, db *roach.DB) []user {
	t.Helper()
	var got []user
	require.NoError(t, db.Builder().Select().FromTable(users).OrderBy("id").All(&got))
	return got
}
