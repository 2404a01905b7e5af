//go:build integration

package savestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type StoreIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pool        *pgxpool.Pool
	redisClient *redis.Client
	stores      map[string]Store
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	logger := zap.NewNop()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("saves_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute),
		),
	)
	s.Require().NoError(err)
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.pool, err = pgxpool.New(s.ctx, connStr)
	s.Require().NoError(err)
	s.Require().NoError(ApplyMigrations(s.pool))

	s.rdContainer, err = tcredis.Run(s.ctx, "docker.io/redis:7-alpine")
	s.Require().NoError(err)
	host, err := s.rdContainer.Host(s.ctx)
	s.Require().NoError(err)
	port, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	s.Require().NoError(err)
	s.redisClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	s.Require().NoError(s.redisClient.Ping(s.ctx).Err())

	s.stores = map[string]Store{
		"postgres": NewPostgresStore(s.pool, logger),
		"redis":    NewRedisStore(s.redisClient, time.Hour, logger),
	}
}

func (s *StoreIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

func (s *StoreIntegrationSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE TABLE story_saves")
	s.Require().NoError(err)
	s.Require().NoError(s.redisClient.FlushDB(s.ctx).Err())
}

func (s *StoreIntegrationSuite) TestSaveLoadLatest() {
	for name, store := range s.stores {
		s.Run(name, func() {
			owner := "player-" + name
			rec := Record{
				ChapterID:       "prologue",
				NodeID:          "p4",
				CollectedTokens: []string{"good_deed"},
				Scores:          map[string]int{"good_deed": 5},
				Timestamp:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			}
			first, err := store.Save(s.ctx, owner, rec)
			s.Require().NoError(err)

			time.Sleep(10 * time.Millisecond)
			rec.NodeID = "p5"
			second, err := store.Save(s.ctx, owner, rec)
			s.Require().NoError(err)

			latest, err := store.Latest(s.ctx, owner)
			s.Require().NoError(err)
			s.Equal(second, latest)

			got, err := store.Load(s.ctx, owner, first)
			s.Require().NoError(err)
			rec.NodeID = "p4"
			if diff := cmp.Diff(rec, got); diff != "" {
				s.Failf("record mismatch", "(-want +got):\n%s", diff)
			}

			_, err = store.Load(s.ctx, "someone-else", first)
			s.ErrorIs(err, ErrNotFound)
			_, err = store.Latest(s.ctx, "someone-else")
			s.ErrorIs(err, ErrNotFound)
		})
	}
}

func (s *StoreIntegrationSuite) TestPostgresCorruptRow() {
	token := "6f1c2b1e-9a55-4a53-8f5e-3f0e4f1d2c10"
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO story_saves (token, owner, data) VALUES ($1, 'p', '{"scores": {}}')`, token)
	s.Require().NoError(err)

	_, err = s.stores["postgres"].Load(s.ctx, "p", token)
	s.ErrorIs(err, ErrCorruptSave)
}

func TestStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("docker client: %v", err)
	}
	defer cli.Close()
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("docker daemon unavailable: %v", err)
	}
	suite.Run(t, new(StoreIntegrationSuite))
}
