package tracker

import (
	"fmt"
	"strconv"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/logger"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for trackers and index maintenance.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the tracker, maintenance, shard and report routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	trackers := app.Group("/trackers")
	trackers.Get("/summary", h.HandleSummary)
	trackers.Get("/:name", h.HandleTracker)
	trackers.Post("/:name/run", h.HandleRun)

	maintenance := app.Group("/maintenance")
	maintenance.Post("/reindex/:kind/:id", h.HandleReindex)
	maintenance.Post("/purge/:kind/:id", h.HandlePurge)
	maintenance.Post("/index/acl/:id", h.HandleIndexAcl)
	maintenance.Post("/retry", h.HandleRetry)

	shards := app.Group("/shards")
	shards.Get("/rangecheck", h.HandleRangeCheck)
	shards.Post("/expand", h.HandleExpand)

	app.Get("/reports/:kind/:id", h.HandleReport)
	app.Get("/documents", h.HandleDocuments)

	if h.service.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.service.metrics.Handler()))
	}
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Debug("Request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}

func target(c *fiber.Ctx) (reconcile.Target, error) {
	kind, ok := reconcile.ParseTargetKind(c.Params("kind"))
	if !ok {
		return reconcile.Target{}, fmt.Errorf("%w: unknown kind %q", errBadRequest, c.Params("kind"))
	}
	id, err := paramID(c)
	if err != nil {
		return reconcile.Target{}, err
	}
	return reconcile.Target{Kind: kind, ID: id}, nil
}

// HandleSummary returns the core summary.
// @Summary Core Summary
// @Description Returns tracker states, watermarks, document counts, error nodes and the DB_ID_RANGE state.
// @Tags trackers
// @Produce json
// @Success 200 {object} reconcile.Summary
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /trackers/summary [get]
func (h *Handler) HandleSummary(c *fiber.Ctx) error {
	s, err := h.service.Summary(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s)
}

// HandleTracker returns the state of one tracker.
// @Summary Tracker State
// @Tags trackers
// @Produce json
// @Param name path string true "Tracker name (acl, metadata, content, cascade, model)"
// @Success 200 {object} reconcile.TrackerState
// @Failure 404 {object} map[string]string "Unknown tracker"
// @Router /trackers/{name} [get]
func (h *Handler) HandleTracker(c *fiber.Ctx) error {
	st, err := h.service.Tracker(c.Context(), c.Params("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

// HandleRun runs one cycle of a tracker.
// @Summary Run Tracker Cycle
// @Description Runs one cycle and waits for it. Returns 409 while a cycle of the same tracker is running.
// @Tags trackers
// @Produce json
// @Param name path string true "Tracker name"
// @Success 200 {object} reconcile.CycleResult
// @Failure 409 {object} map[string]string "Cycle already running"
// @Failure 502 {object} map[string]string "Repository unreachable"
// @Router /trackers/{name}/run [post]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Running tracker cycle", zap.String("tracker", c.Params("name")))

	res, err := h.service.Run(c.Context(), c.Params("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleReindex reindexes one entity.
// @Summary Reindex Entity
// @Description Rewrites every document derived from a transaction, node, ACL or ACL change-set.
// @Tags maintenance
// @Produce json
// @Param kind path string true "transaction, node, acl or aclchangeset"
// @Param id path int true "Entity id"
// @Success 200 {object} reconcile.MaintenanceResult
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} reconcile.MaintenanceResult
// @Router /maintenance/reindex/{kind}/{id} [post]
func (h *Handler) HandleReindex(c *fiber.Ctx) error {
	t, err := target(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.service.Reindex(c.Context(), t)
	if err != nil {
		if res.Status == reconcile.StatusFailed {
			return c.Status(statusOf(err)).JSON(res)
		}
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleIndexAcl indexes one ACL.
// @Summary Index ACL
// @Description Writes the ACL document from the repository. The ACL must exist.
// @Tags maintenance
// @Produce json
// @Param id path int true "ACL id"
// @Success 200 {object} reconcile.MaintenanceResult
// @Failure 404 {object} reconcile.MaintenanceResult
// @Router /maintenance/index/acl/{id} [post]
func (h *Handler) HandleIndexAcl(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.service.IndexAcl(c.Context(), id)
	if err != nil {
		if res.Status == reconcile.StatusFailed {
			return c.Status(statusOf(err)).JSON(res)
		}
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandlePurge purges one entity from the index.
// @Summary Purge Entity
// @Description Deletes every document derived from the entity. With dry_run=true only the plan is returned.
// @Tags maintenance
// @Produce json
// @Param kind path string true "transaction, node, acl or aclchangeset"
// @Param id path int true "Entity id"
// @Param dry_run query boolean false "Plan without deleting"
// @Success 200 {object} map[string]interface{} "Plan and result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /maintenance/purge/{kind}/{id} [post]
func (h *Handler) HandlePurge(c *fiber.Ctx) error {
	t, err := target(c)
	if err != nil {
		return h.fail(c, err)
	}
	opts := reconcile.PurgeOptions{DryRun: c.QueryBool("dry_run"), Confirmed: true}

	l := logger.WithRayID(h.service.logger, c)
	l.Info("Purging", zap.String("kind", string(t.Kind)), zap.Int64("id", t.ID), zap.Bool("dry_run", opts.DryRun))

	plan, res, err := h.service.Purge(c.Context(), t, opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"plan": plan, "result": res})
}

// HandleRetry reindexes every error node.
// @Summary Retry Error Nodes
// @Tags maintenance
// @Produce json
// @Success 200 {object} reconcile.RetryResult
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /maintenance/retry [post]
func (h *Handler) HandleRetry(c *fiber.Ctx) error {
	res, err := h.service.Retry(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleRangeCheck reports the density of the local DB_ID_RANGE shard.
// @Summary Range Check
// @Tags shards
// @Produce json
// @Success 200 {object} shard.RangeCheck
// @Failure 400 {object} map[string]string "Not a DB_ID_RANGE shard"
// @Router /shards/rangecheck [get]
func (h *Handler) HandleRangeCheck(c *fiber.Ctx) error {
	rc, err := h.service.RangeCheck(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rc)
}

// HandleExpand grows the local range.
// @Summary Expand Range
// @Description Grows the DB_ID_RANGE end of the local shard once. Returns expanded=-1 and the reason when refused.
// @Tags shards
// @Produce json
// @Param add query int true "Number of ids to add"
// @Success 200 {object} map[string]interface{} "New range end"
// @Failure 409 {object} map[string]interface{} "Expansion refused"
// @Router /shards/expand [post]
func (h *Handler) HandleExpand(c *fiber.Ctx) error {
	delta, err := strconv.ParseInt(c.Query("add"), 10, 64)
	if err != nil || delta <= 0 {
		return h.fail(c, fmt.Errorf("%w: add must be a positive integer", errBadRequest))
	}
	end, err := h.service.Expand(c.Context(), delta)
	if err != nil {
		return c.Status(statusOf(err)).JSON(fiber.Map{"expanded": int64(-1), "error": err.Error()})
	}
	return c.JSON(fiber.Map{"expanded": end})
}

// HandleReport compares one entity in the repository and the index.
// @Summary Entity Report
// @Tags reports
// @Produce json
// @Param kind path string true "node, tx, acl or acltx"
// @Param id path int true "Entity id"
// @Success 200 {object} map[string]interface{} "Report"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /reports/{kind}/{id} [get]
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	r, err := h.service.Report(c.Context(), c.Params("kind"), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(r)
}

// HandleDocuments queries the index.
// @Summary Query Documents
// @Tags reports
// @Produce json
// @Param type query string false "node, error, acl, acltx, tx, model or state"
// @Param node_id query int false "Node id"
// @Param txn_id query int false "Transaction id"
// @Param acl_id query int false "ACL id"
// @Param reader query string false "Authority with read access"
// @Param ancestor query string false "Ancestor nodeRef"
// @Param text query string false "Text in properties or content"
// @Param limit query int false "Maximum documents (default 100)"
// @Success 200 {array} index.Document
// @Router /documents [get]
func (h *Handler) HandleDocuments(c *fiber.Ctx) error {
	q := index.Query{
		Type:     index.DocType(c.Query("type")),
		NodeID:   int64(c.QueryInt("node_id")),
		TxnID:    int64(c.QueryInt("txn_id")),
		AclID:    int64(c.QueryInt("acl_id")),
		Reader:   c.Query("reader"),
		Ancestor: c.Query("ancestor"),
		Text:     c.Query("text"),
		Limit:    c.QueryInt("limit"),
	}
	docs, err := h.service.Documents(c.Context(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(docs)
}
