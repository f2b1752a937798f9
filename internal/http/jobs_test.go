package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/database"
	"github.com/lodeapp/lode/internal/database/conversations"
	jobsdb "github.com/lodeapp/lode/internal/database/jobs"
	"github.com/lodeapp/lode/internal/database/reports"
	"github.com/lodeapp/lode/internal/dedup"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/importers"
	"github.com/lodeapp/lode/internal/jobs"
	"github.com/lodeapp/lode/internal/search"
)

func setupAPITest(t *testing.T) (*gin.Engine, *database.Database, *jobs.Manager, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_api_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	index := search.NewIndex(db.DB)
	require.NoError(t, index.EnsureSchema())

	store := conversations.NewRepository(db.DB)
	reportRepo := reports.NewRepository(db.DB)
	jobRows := jobsdb.NewRepository(db.DB)

	manager := jobs.NewManager(jobRows)
	manager.Register(entities.JobTypeImport,
		jobs.NewImportHandler(importers.NewNormalizer(), store, reportRepo, dedup.NewEngine(store), index))
	manager.Register(entities.JobTypeReindex, jobs.NewReindexHandler(store, index))

	router := NewRouter(RouterConfig{
		Database:   db,
		Store:      store,
		Reports:    reportRepo,
		JobManager: manager,
		Index:      index,
		Version:    "test",
	})

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return router, db, manager, cleanup
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func waitAPIJobTerminal(t *testing.T, manager *jobs.Manager, id string) jobs.View {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := manager.Get(id)
		require.NoError(t, err)
		if view.Status.Terminal() {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return jobs.View{}
}

func TestJobsAPI_CreateReindexJob(t *testing.T) {
	router, _, manager, cleanup := setupAPITest(t)
	defer cleanup()

	w := doJSON(t, router, "POST", "/api/jobs", gin.H{"type": "reindex"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var view jobs.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, entities.JobTypeReindex, view.Type)

	final := waitAPIJobTerminal(t, manager, view.ID)
	assert.Equal(t, entities.JobStatusCompleted, final.Status)
}

func TestJobsAPI_CreateImportRequiresFilePath(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	w := doJSON(t, router, "POST", "/api/jobs", gin.H{"type": "import", "source_type": "claude"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobsAPI_CreateUnknownType(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	w := doJSON(t, router, "POST", "/api/jobs", gin.H{"type": "launch-rockets"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobsAPI_GetJob(t *testing.T) {
	router, _, manager, cleanup := setupAPITest(t)
	defer cleanup()

	id, err := manager.Submit(entities.JobTypeReindex, jobs.Params{})
	require.NoError(t, err)
	waitAPIJobTerminal(t, manager, id)

	w := doJSON(t, router, "GET", "/api/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view jobs.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, entities.JobStatusCompleted, view.Status)
	assert.Equal(t, 100, view.Progress)
}

func TestJobsAPI_GetUnknownJob(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	w := doJSON(t, router, "GET", "/api/jobs/not-a-job", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobsAPI_ListJobs(t *testing.T) {
	router, _, manager, cleanup := setupAPITest(t)
	defer cleanup()

	id, err := manager.Submit(entities.JobTypeReindex, jobs.Params{})
	require.NoError(t, err)
	waitAPIJobTerminal(t, manager, id)

	w := doJSON(t, router, "GET", "/api/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Jobs  []jobs.View `json:"jobs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	require.Len(t, response.Jobs, 1)
	assert.Equal(t, id, response.Jobs[0].ID)
}

func TestJobsAPI_CancelTerminalJobConflicts(t *testing.T) {
	router, _, manager, cleanup := setupAPITest(t)
	defer cleanup()

	id, err := manager.Submit(entities.JobTypeReindex, jobs.Params{})
	require.NoError(t, err)
	waitAPIJobTerminal(t, manager, id)

	w := doJSON(t, router, "POST", "/api/jobs/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJobsAPI_CancelUnknownJob(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	w := doJSON(t, router, "POST", "/api/jobs/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
