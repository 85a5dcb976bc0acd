package geom

import "errors"

// ErrDegeneratePolygon is returned by NewPolygon when the input has fewer
// than three vertices after welding near-duplicates, or produces a
// zero-length hull edge. The world layer wraps this as InvalidArgument.
var ErrDegeneratePolygon = errors.New("geom: polygon has fewer than 3 vertices or is degenerate")
