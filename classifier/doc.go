// Package classifier turns one image into an ordered list of the most
// likely classes.
//
// A Classifier owns one loaded network, its label table and the default
// number of candidates to return. Predict runs the fixed pipeline:
//
//	load image -> resize shorter side to the network input -> center crop
//	-> forward pass -> hierarchy correction (tree label spaces only)
//	-> top-K selection
//
// Every intermediate image tensor is released before Predict returns.
// A Classifier is not safe for concurrent use; callers serialize access
// (see package session).
package classifier
