package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"paisa/internal/config"
	"paisa/internal/handlers"
	"paisa/internal/ingest"
	"paisa/internal/logger"
	"paisa/internal/middleware"
	"paisa/internal/models"
	"paisa/internal/remote"
	"paisa/internal/store"
	"paisa/internal/syncer"
	"paisa/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Store  *store.Store
	Worker *syncer.Worker
	Peer   *memoryPeer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// memoryPeer is an in-memory stand-in for the remote sync service. Online is
// toggled by tests to simulate connectivity changes; pushed records are kept
// so assertions can inspect what reached the peer.
type memoryPeer struct {
	Online  bool
	Records map[string]remote.Record
}

func newMemoryPeer() *memoryPeer {
	return &memoryPeer{Records: make(map[string]remote.Record)}
}

func (p *memoryPeer) Check(ctx context.Context) error {
	if !p.Online {
		return context.DeadlineExceeded
	}
	return nil
}

func (p *memoryPeer) Push(ctx context.Context, entries []remote.PushEntry) ([]remote.PushResult, error) {
	results := make([]remote.PushResult, 0, len(entries))
	for _, e := range entries {
		p.Records[e.Record.TransactionID] = e.Record
		results = append(results, remote.PushResult{
			TransactionID:   e.Record.TransactionID,
			AcceptedVersion: e.Record.Version,
		})
	}
	return results, nil
}

func (p *memoryPeer) Pull(ctx context.Context, cursor string) (*remote.PullResponse, error) {
	return &remote.PullResponse{NextCursor: cursor}, nil
}

func (p *memoryPeer) Fetch(ctx context.Context, ids []string) ([]remote.Record, error) {
	records := make([]remote.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := p.Records[id]; ok {
			records = append(records, r)
		}
	}
	return records, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxAmount:       "10000000",
		ClockSkew:       5 * time.Minute,
		DescriptionCap:  500,
		CategoryCap:     100,
		DedupWindowDays: 1,
		UploadBatchSize: 50,
	}
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Transaction{},
		&models.SyncEntry{},
		&models.SyncCheckpoint{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite and an in-memory remote peer. The sync worker is not started; tests
// drive cycles explicitly for determinism.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	cfg := testConfig()

	localStore := store.NewStore(db)
	aggregator := store.NewAggregator(localStore)
	recorder := ingest.NewService(localStore, cfg)

	peer := newMemoryPeer()
	worker := syncer.NewWorker(localStore, peer, zap.NewNop().Sugar(),
		time.Minute, cfg.UploadBatchSize,
		syncer.Backoff{Base: time.Millisecond, Cap: 10 * time.Millisecond})

	transactionHandler := handlers.NewTransactionHandler(recorder, localStore, ingest.RulesFromConfig(cfg))
	summaryHandler := handlers.NewSummaryHandler(aggregator)
	syncHandler := handlers.NewSyncHandler(localStore, worker)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	v1.GET("/summary", summaryHandler.GetSummary)
	v1.GET("/balance", summaryHandler.GetBalance)
	v1.GET("/summary/categories", summaryHandler.GetCategoryTotals)

	sync := v1.Group("/sync")
	sync.GET("/status", syncHandler.GetStatus)
	sync.POST("/trigger", syncHandler.TriggerSync)

	return &testApp{DB: db, Router: router, Store: localStore, Worker: worker, Peer: peer}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// runSyncCycle drives one worker cycle synchronously.
func (app *testApp) runSyncCycle(t *testing.T) *syncer.CycleResult {
	t.Helper()
	result, err := app.Worker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("sync cycle failed: %v", err)
	}
	return result
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// createTransaction posts a candidate and returns the stored transaction ID.
func (app *testApp) createTransaction(t *testing.T, body string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	tx := result["transaction"].(map[string]interface{})
	return tx["transaction_id"].(string)
}
