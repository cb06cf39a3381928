package pg

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Pack144/packman-sub000/shared/config"
	"github.com/Pack144/packman-sub000/shared/domain"
	sharedpg "github.com/Pack144/packman-sub000/shared/storage/pg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var storage *Storage

func TestMain(m *testing.M) {
	ctx := context.Background()
	var container *postgres.PostgresContainer
	storage, container = mustSetup(ctx)

	exitCode := m.Run()
	teardown(ctx, storage, container)
	os.Exit(exitCode)
}

func mustSetup(ctx context.Context) (*Storage, *postgres.PostgresContainer) {
	dbName := "postoffice"
	dbUser := "user"
	dbPassword := "password"
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithInitScripts(filepath.Join("migrations", "init.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			// The container restarts once after the init scripts run.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	containerPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to obtain container port: %s", err)
	}
	port, err := strconv.Atoi(containerPort.Port())
	if err != nil {
		log.Fatalf("failed to obtain int container port: %s", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("failed to obtain container host: %s", err)
	}

	cfg := config.Pg{Host: host, Port: port, User: dbUser, Password: dbPassword, Dbname: dbName}
	storage, err := NewWithPool(ctx, cfg, sharedpg.DefaultConnectionConfig())
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	return storage, container
}

func teardown(ctx context.Context, storage *Storage, container *postgres.PostgresContainer) {
	if err := storage.Cleanup(); err != nil {
		log.Printf("failed to close storage connection: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

// =========================================================================
// Fixtures
// =========================================================================

func unique(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func createTestUser(t *testing.T, name string) domain.User {
	t.Helper()
	u := domain.User{DisplayName: name, Email: unique(name) + "@example.org", Active: true}
	err := storage.db.QueryRow(
		"INSERT INTO users (display_name, email) VALUES ($1, $2) RETURNING id",
		u.DisplayName, u.Email,
	).Scan(&u.Id)
	require.NoError(t, err)
	return u
}

func deactivateUser(t *testing.T, id domain.UserId) {
	t.Helper()
	_, err := storage.db.Exec("UPDATE users SET is_active = FALSE WHERE id = $1", id)
	require.NoError(t, err)
}

// createPeriod inserts a reporting period offset from today by whole years.
func createPeriod(t *testing.T, yearOffset int) int64 {
	t.Helper()
	today := time.Now().UTC()
	start := time.Date(today.Year()+yearOffset, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var id int64
	err := storage.db.QueryRow(
		"INSERT INTO reporting_periods (name, start_date, end_date) VALUES ($1, $2, $3) RETURNING id",
		unique("period"), start, end,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func addMembership(t *testing.T, ref domain.SubGroupRef, userId domain.UserId, periodId int64) {
	t.Helper()
	_, err := storage.db.Exec(
		"INSERT INTO sub_group_memberships (kind, sub_group_id, user_id, period_id) VALUES ($1, $2, $3, $4)",
		ref.Kind, ref.Id, userId, periodId,
	)
	require.NoError(t, err)
}

// newSubGroup returns a selector no other test uses.
func newSubGroup(kind domain.SubGroupKind) domain.SubGroupRef {
	return domain.SubGroupRef{Kind: kind, Id: time.Now().UnixNano()}
}

func createTestList(t *testing.T, groups ...domain.SubGroupRef) domain.DistributionList {
	t.Helper()
	l := domain.DistributionList{Name: unique("list"), SubGroups: groups}
	id, err := storage.CreateList(context.Background(), l)
	require.NoError(t, err)
	l, err = storage.GetList(context.Background(), id)
	require.NoError(t, err)
	return l
}

func createTestMessage(t *testing.T, author domain.User) domain.Message {
	t.Helper()
	msg, err := storage.CreateMessage(context.Background(), domain.Message{
		Author:  author,
		Subject: "Campout this weekend",
		Body:    "Bring a **sleeping bag**.",
	})
	require.NoError(t, err)
	return msg
}
