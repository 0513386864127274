// Package attpc builds consolidated, per-run hierarchical event files from
// the two parallel DAQ streams of a TPC experiment: a GET subsystem writing
// many .graw files (one stream per CoBo/AsAd electronics pair) and a FRIB
// subsystem writing .evt ring-item files. See the graw, ring, event, writer,
// search and worker subpackages for the merge pipeline itself; this package
// holds the shared data model, configuration and channel map that the rest
// of the pipeline is built around.
package attpc
