package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/repo/memory"
	"github.com/Alfresco/SearchServices-sub009/core/shard"
	"github.com/Alfresco/SearchServices-sub009/feature/acl"
	"github.com/Alfresco/SearchServices-sub009/feature/metadata"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, tracks bool) (*fiber.App, *memory.Source) {
	t.Helper()
	src := memory.New()
	sink := index.NewMemorySink()
	policy := shard.New(shard.Config{}, zap.NewNop())
	m := metrics.New()
	core := reconcile.NewCore(reconcile.CoreConfig{Name: "alfresco"}, sink, src, policy, nil, zap.NewNop(), m)
	core.Register(
		acl.New(src, sink, zap.NewNop()),
		metadata.New(src, sink, policy, 0, nil, zap.NewNop()),
	)

	for _, id := range []int64{10, 11} {
		ref := fmt.Sprintf("workspace://SpacesStore/%d", id)
		src.SetMetadata(repo.NodeMetadata{NodeID: id, NodeRef: ref, Type: "cm:content",
			Properties: map[string]repo.PropertyValue{"cm:name": repo.Text(fmt.Sprintf("report-%d.pdf", id))}})
	}
	src.AddTransaction(repo.Transaction{ID: 1, CommitTimeMs: 1000},
		repo.Node{ID: 10, NodeRef: "workspace://SpacesStore/10", AclID: 5},
		repo.Node{ID: 11, NodeRef: "workspace://SpacesStore/11", AclID: 5})
	src.AddAclChangeSet(repo.AclChangeSet{ID: 1, CommitTimeMs: 900}, repo.Acl{ID: 5, ChangeSetID: 1})
	src.SetReaders(repo.AclReaders{AclID: 5, Readers: []string{"GROUP_EVERYONE"}})

	app := fiber.New()
	NewFeature(core, m, zap.NewNop(), tracks).Load(app)
	return app, src
}

func call(t *testing.T, app *fiber.App, method, path string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandleRunAndSummary(t *testing.T) {
	app, _ := setupTestApp(t, true)

	var res reconcile.CycleResult
	require.Equal(t, 200, call(t, app, "POST", "/trackers/metadata/run", &res))
	assert.Equal(t, 1, res.Units)
	assert.Equal(t, 2, res.Outcome.Written)
	require.Equal(t, 200, call(t, app, "POST", "/trackers/acl/run", nil))

	var s reconcile.Summary
	require.Equal(t, 200, call(t, app, "GET", "/trackers/summary", &s))
	assert.Equal(t, "alfresco", s.Core)
	assert.Equal(t, 2, s.Documents["node"])
	assert.Equal(t, 1, s.Documents["acl"])
	assert.Len(t, s.Trackers, 2)

	var st reconcile.TrackerState
	require.Equal(t, 200, call(t, app, "GET", "/trackers/metadata", &st))
	assert.Equal(t, int64(1), st.Watermark)

	assert.Equal(t, 404, call(t, app, "GET", "/trackers/cascade", nil))
	assert.Equal(t, 404, call(t, app, "POST", "/trackers/cascade/run", nil))
}

func TestHandleMaintenance(t *testing.T) {
	app, src := setupTestApp(t, true)
	require.Equal(t, 200, call(t, app, "POST", "/trackers/metadata/run", nil))

	t.Run("reindex node", func(t *testing.T) {
		var res reconcile.MaintenanceResult
		require.Equal(t, 200, call(t, app, "POST", "/maintenance/reindex/node/10", &res))
		assert.Equal(t, reconcile.StatusOK, res.Status)
		assert.Equal(t, 1, res.Outcome.Written)
	})

	t.Run("bad requests", func(t *testing.T) {
		assert.Equal(t, 400, call(t, app, "POST", "/maintenance/reindex/widget/10", nil))
		assert.Equal(t, 400, call(t, app, "POST", "/maintenance/reindex/node/abc", nil))
		assert.Equal(t, 400, call(t, app, "POST", "/maintenance/purge/node/0", nil))
	})

	t.Run("index missing acl", func(t *testing.T) {
		var res reconcile.MaintenanceResult
		require.Equal(t, 404, call(t, app, "POST", "/maintenance/index/acl/99", &res))
		assert.Equal(t, reconcile.StatusFailed, res.Status)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("purge", func(t *testing.T) {
		var body struct {
			Plan   reconcile.PurgePlan         `json:"plan"`
			Result reconcile.MaintenanceResult `json:"result"`
		}
		require.Equal(t, 200, call(t, app, "POST", "/maintenance/purge/transaction/1?dry_run=true", &body))
		assert.Equal(t, reconcile.StatusDryRun, body.Result.Status)
		assert.Equal(t, []string{"NODE!10", "NODE!11", "TX!1"}, body.Plan.Keys)

		var docs []index.Document
		require.Equal(t, 200, call(t, app, "GET", "/documents?type=node", &docs))
		assert.Len(t, docs, 2)

		require.Equal(t, 200, call(t, app, "POST", "/maintenance/purge/transaction/1", &body))
		assert.Equal(t, reconcile.StatusOK, body.Result.Status)
		assert.Equal(t, 3, body.Result.Outcome.Deleted)

		require.Equal(t, 200, call(t, app, "GET", "/documents?type=node", &docs))
		assert.Empty(t, docs)
	})

	t.Run("retry", func(t *testing.T) {
		src.FailMetadata("workspace://SpacesStore/11", fmt.Errorf("unsupported mimetype"))
		require.Equal(t, 200, call(t, app, "POST", "/maintenance/reindex/node/11", nil))

		var res reconcile.RetryResult
		require.Equal(t, 200, call(t, app, "POST", "/maintenance/retry", &res))
		assert.Equal(t, 1, res.Attempted)
		assert.Equal(t, []int64{11}, res.Failing)
	})
}

func TestHandleShardsAndReports(t *testing.T) {
	app, _ := setupTestApp(t, true)
	require.Equal(t, 200, call(t, app, "POST", "/trackers/metadata/run", nil))

	assert.Equal(t, 400, call(t, app, "GET", "/shards/rangecheck", nil))
	assert.Equal(t, 400, call(t, app, "POST", "/shards/expand", nil))

	var out map[string]any
	require.Equal(t, 400, call(t, app, "POST", "/shards/expand?add=100", &out))
	assert.Equal(t, float64(-1), out["expanded"])

	var node reconcile.NodeReport
	require.Equal(t, 200, call(t, app, "GET", "/reports/node/10", &node))
	assert.True(t, node.Indexed)
	assert.Equal(t, int64(1), node.DBTxID)

	var tx reconcile.TxReport
	require.Equal(t, 200, call(t, app, "GET", "/reports/tx/1", &tx))
	assert.Equal(t, 2, tx.IndexedNodes)
	assert.True(t, tx.MarkerIndexed)

	assert.Equal(t, 400, call(t, app, "GET", "/reports/widget/1", nil))

	var docs []index.Document
	require.Equal(t, 200, call(t, app, "GET", "/documents?text=report-11", &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, int64(11), docs[0].NodeID)
}

func TestHandleReadOnly(t *testing.T) {
	app, _ := setupTestApp(t, false)

	assert.Equal(t, 403, call(t, app, "POST", "/trackers/metadata/run", nil))
	assert.Equal(t, 403, call(t, app, "POST", "/maintenance/reindex/node/10", nil))
	assert.Equal(t, 403, call(t, app, "POST", "/maintenance/retry", nil))
	assert.Equal(t, 403, call(t, app, "POST", "/maintenance/purge/node/10", nil))
	assert.Equal(t, 200, call(t, app, "POST", "/maintenance/purge/node/10?dry_run=true", nil))
	assert.Equal(t, 200, call(t, app, "GET", "/trackers/summary", nil))
}

func TestHandleMetrics(t *testing.T) {
	app, _ := setupTestApp(t, true)
	require.Equal(t, 200, call(t, app, "POST", "/trackers/metadata/run", nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), `tracker_cycles_total{core="alfresco",status="success",tracker="metadata"} 1`)
}
