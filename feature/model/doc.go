// Package model tracks data-model definitions. The Registry it maintains
// decides which node properties are indexed.
package model
