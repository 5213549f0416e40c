// Package signature reflects wrapped function shapes into shared descriptors.
//
// This package is internal and should not be imported directly.
// A descriptor is built once per distinct func type and shared read-only
// by every wrapper of that type.
package signature
