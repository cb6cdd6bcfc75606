package domain

import "time"

// DatasetKey names one of the datasets the dashboard loads
type DatasetKey string

const (
	DatasetPrimary      DatasetKey = "primary"
	DatasetDemographics DatasetKey = "demographics"
	DatasetRnD          DatasetKey = "rnd"
	DatasetBarometer    DatasetKey = "barometer"
	DatasetValuations   DatasetKey = "valuations"
)

// AllDatasets lists every dataset key in load order
func AllDatasets() []DatasetKey {
	return []DatasetKey{
		DatasetPrimary,
		DatasetDemographics,
		DatasetRnD,
		DatasetBarometer,
		DatasetValuations,
	}
}

// Row maps a column name to a cell. Absent keys are permitted and are not zero.
type Row map[string]Value

// Get returns the cell for column, or missing
func (r Row) Get(column string) Value {
	if r == nil || column == "" {
		return Missing()
	}
	return r[column]
}

// Populated reports whether at least one cell is present
func (r Row) Populated() bool {
	for _, v := range r {
		if !v.IsMissing() {
			return true
		}
	}
	return false
}

// SourceTier identifies where a dataset snapshot came from
type SourceTier string

const (
	TierLocal    SourceTier = "local"
	TierSnapshot SourceTier = "snapshot"
	TierRemote   SourceTier = "remote"
	TierBundled  SourceTier = "bundled"
	TierNone     SourceTier = "none"
)

// Dataset is an ordered sequence of rows loaded in one cycle. It is treated as
// immutable once constructed.
type Dataset struct {
	Key      DatasetKey `json:"key"`
	Rows     []Row      `json:"rows"`
	Source   SourceTier `json:"source"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// Empty reports whether the dataset carries no rows
func (d Dataset) Empty() bool { return len(d.Rows) == 0 }
