// Package domain models the entities of the BESS site-prospecting pipeline:
// grid infrastructure, real-estate parcels, environmental hazard features,
// and the candidate sites the scoring engine produces.
//
// # Data Sources
//
// Upstream connector services normalize public registries into the feature
// collections consumed here:
//
//	Grid nodes:       HIFLD US Electric Substations (voltage class, line count)
//	Parcels:          county appraisal/parcel rolls (acreage, price per acre)
//	Flood zones:      FEMA National Flood Hazard Layer (NFHL) polygons
//	Contamination:    EPA Superfund/NPL, ACRES Brownfields, TRI; state
//	                  LPST/UST/IHW registries
//	Habitat:          USFWS National Wetlands Inventory and designated
//	                  critical habitat polygons
//	Generation:       EIA plant inventory with nameplate capacity (MW)
//	Solar:            NREL annual-average GHI samples (kWh/m²/day)
//
// The wire format of each registry (ArcGIS REST, CSV, shapefile) is the
// connectors' concern; this engine operates only on the normalized records.
// Unknown upstream attributes are dropped at the ingestion boundary rather
// than threaded through as open maps.
//
// # Voltage Classes
//
// Substation voltage is bucketed as a proxy for interconnection capacity:
//
//	500kV+  max operating voltage ≥ 500 kV
//	345kV   ≥ 345 kV
//	230kV   ≥ 220 kV (HIFLD's 220-287 class)
//	161kV   ≥ 161 kV
//	<161kV  everything below
//
// # Candidate Identity
//
// Candidate IDs are the natural key "<node>/<parcel>" (or "<node>/buffer"
// for synthetic footprints). Natural keys make the ranking tie-break chain
// reproducible and keep replayed runs byte-identical. See [CandidateID].
//
// # Mutability
//
// A CandidateSite is written in stages: the assembler creates it, the
// screener and assessor each fill only their own slot, and the composite
// scorer finalizes score, grade, and eliminate exactly once. Rank is
// positional and assigned during the final sort pass. After that the record
// is immutable and handed to export.
package domain
