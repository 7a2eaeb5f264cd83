// Package content caches extracted text of content properties.
package content
