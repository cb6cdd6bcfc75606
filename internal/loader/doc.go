// Package loader produces dataset snapshots through a fallback chain of
// sources.
//
// # Tiers
//
// Every dataset in the Catalog is tried against these tiers in order until one
// yields at least one row with a populated cell:
//
//	1. local     <data_dir>/<dataset>.json, an array of row objects
//	2. snapshot  the dataset from the previous successful cycle
//	3. remote    the spreadsheet tab, via CSV export or the Sheets API
//	4. bundled   the static workbook, primary dataset only
//
// Reload moves the snapshot tier to the end so fresh remote data wins.
//
// A tier that fails is recorded in the dataset's Provenance and the chain
// moves on. An HTML page in place of delimited text is classified as
// KindNotPublic and carries remediation text. Optional datasets that exhaust
// the chain come back empty; the required primary dataset fails the cycle
// with ErrExhausted and the previous snapshot stays current.
//
// # Discovery
//
// Datasets with no configured tab are located by probing the candidate tabs
// with at most discovery_concurrency requests in flight. The first tab whose
// columns satisfy the dataset's role signature wins, outstanding reads are
// cancelled and the tab id is written to the locations file so later cycles
// and restarts skip the scan.
//
// # Snapshots
//
// Store holds the current Snapshot behind an atomic pointer. A cycle builds
// its datasets privately and publishes them in one swap, so readers observe
// either the previous or the new snapshot in full. Revision increases by one
// per publish and keys downstream memoization.
package loader
