// Package serializer defines the serializer policy used to decode boundary
// arguments and encode results.
//
// The bridge never configures encoding itself; callers hand it a Serializer.
// JSON is the stock policy, built on encoding/json with optional
// UseNumber and DisallowUnknownFields behavior.
package serializer
