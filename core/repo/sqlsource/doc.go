// Package sqlsource implements repo.Source over the repository database with gorm.
//
// Transactions and ACL change-sets are read from alf_transaction and
// alf_acl_change_set in id order; node and ACL counts are computed in the same
// query. Node metadata is assembled from alf_node, alf_node_ancestor and
// alf_node_property, where multi-valued properties span several rows.
//
// Verify checks the live schema before the trackers start, so a repository
// upgrade that drops a column fails at boot instead of inside a cycle.
package sqlsource
