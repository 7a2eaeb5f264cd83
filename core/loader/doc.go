// Package loader mounts admin API features on the Fiber app.
//
// Each feature implements the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps registration order, skips disabled features and wraps the first
// load failure with the feature name.
package loader
