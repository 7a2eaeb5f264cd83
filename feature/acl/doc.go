// Package acl tracks ACL change-sets and keeps one reader document per ACL.
package acl
