// Package pptx reads and writes PresentationML (.pptx) containers.
//
// A presentation is treated as an ordered set of zip parts plus a parsed
// view of the pieces the templating engine mutates: the slide sequence in
// ppt/presentation.xml, per-slide relationship sets, and the content-type
// manifest. Slide subtrees are kept as raw XML strings because the engine
// above this package operates on the character stream, not on a parse
// tree; queries that do need structure go through xmlquery.
package pptx
