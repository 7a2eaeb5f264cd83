// Package cascade propagates ancestor path changes to descendant documents.
package cascade
