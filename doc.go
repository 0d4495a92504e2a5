// Package geostate finds place mentions in free text and standardises them
// to ISO 3166-1 alpha-3 country codes.
//
// A Recognizer (a named-entity model) reports labelled spans; spans labelled
// GPE become mentions. Each mention is trimmed and looked up exactly in a
// Table. Mentions without an entry are kept as placeholders formed by
// UnknownPrefix and the original mention, and CleanCodes drops them again:
//
//	table, _ := geostate.DefaultTable()
//	codes := geostate.ToISOCodes([]string{"France", "Atlantis"}, table)
//	// codes == []string{"FRA", "UNKNOWN_Atlantis"}
//	geostate.CleanCodes(codes)
//	// []string{"FRA"}
//
// Detector bundles a recognizer and a table loaded once at startup.
package geostate
