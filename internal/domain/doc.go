// Package domain models nursing-home survey data published by the Centers for
// Medicare & Medicaid Services (CMS).
//
// # Data Sources
//
// Three extracts are combined into one in-memory [Dataset]:
//
//	Survey summary  (SurveySummaryAll.csv / .xlsx)   one row per facility survey
//	Provider info   (provider_info.csv)              the roster, one row per CCN
//	Deficiencies    (health_deficiencies*.csv)       one row per cited deficiency
//
// The survey summary frequently lacks the CMS Certification Number (CCN), so
// its rows are linked to the roster by facility name and state. Deficiency
// rows always carry a CCN.
//
// # CMS Data Conventions
//
// CCN format:
//
//	Six characters, digits in practice, e.g. "015009". Spreadsheet tools drop
//	leading zeros ("15009"), so identifiers are compared after stripping zeros
//	and left-padding back to six digits. See identity.NormalizeCCN.
//
// State format:
//
//	Either the USPS code ("FL") or the full name ("Florida"), in any casing.
//	The survey summary and the roster do not agree on which one they use.
//
// County format:
//
//	"County/Parish" column, sometimes with the "County" or "Parish" suffix
//	("Miami-Dade County", "Orleans Parish"), sometimes without.
//
// Ratings:
//
//	Star ratings 1-5 serialized as "4" or "4.0". Missing values are empty or
//	the literal "nan" left behind by upstream exports.
//
// Survey dates:
//
//	Mostly ISO "2023-01-02", occasionally US "01/02/2023". Dates outside
//	2016-01-01..2027-12-31 are export artifacts and are discarded.
//
// # Snapshot Lifecycle
//
// A [Dataset] is built once per load and never mutated. Reloads build a new
// value and swap it in atomically so readers never observe half-resolved
// identifiers.
package domain
