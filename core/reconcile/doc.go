// Package reconcile keeps an index in step with the repository of record.
//
// An Engine runs tracker cycles. Each cycle reads the tracker's watermark,
// fetches units above it in batches, lets the Adapter stage the derived
// documents, and commits every batch together with the new watermark. A fetch
// error abandons the cycle before any write; a commit error leaves the
// watermark where it was so the next cycle re-applies the same units.
//
// A Core hosts the adapters of one shard instance and exposes the maintenance
// surface: reindex, purge, retry, range expansion, summaries and reports.
//
//	core := reconcile.NewCore(reconcile.CoreConfig{Name: "alfresco"}, sink, src, policy, nil, log, m)
//	core.Register(acl.New(src, sink, log), metadata.New(src, sink, policy, 0, reg, log))
//	res, err := core.Run(ctx, "metadata")
//
// Maintenance requests for the same target that arrive while one is running
// share its result.
package reconcile
