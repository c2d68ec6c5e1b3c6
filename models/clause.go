package models

// MetadataRecord holds the closed set of Sharia-relevant facts extracted
// from one clause. The schema is fixed: every key returned by
// DefaultMetadata is guaranteed to be present on any record that has gone
// through MergeMetadata, so rule logic never observes a missing key.
type MetadataRecord map[string]interface{}

// DefaultMetadata returns the full metadata schema with its documented
// default values. Enum-valued keys default to "unknown", boolean keys to
// false. New schema keys must be added here with a default so existing
// rule logic strings remain resolvable.
func DefaultMetadata() MetadataRecord {
	return MetadataRecord{
		"penalty_recipient":               "unknown",
		"profit_basis":                    "unknown",
		"is_fixed_at_signature":           false,
		"possession_acquired_before_sale": false,
		"ownership_transfer_condition":    "unknown",
		"customer_as_agent":               false,
		"insurance_payer_pre_sale":        "unknown",
		"includes_internal_staff_costs":   false,
		"damage_recovery_includes_markup": false,
		"discount_in_contract":            false,
		"expenses_disclosed":              false,
		"supplier_invoice_recipient":      "unknown",
	}
}

// MergeMetadata layers parsed values on top of the default schema. Parsed
// keys win; keys the model did not produce keep their defaults. Keys
// outside the schema are carried through unchanged.
func MergeMetadata(parsed MetadataRecord) MetadataRecord {
	merged := DefaultMetadata()
	for k, v := range parsed {
		merged[k] = v
	}
	return merged
}

// Clause is one extracted contractual segment. ID is assigned once per
// audit run in extraction order (cl_0, cl_1, ...); ClauseID is the
// document-native identifier when the model detected one.
type Clause struct {
	ID       string         `json:"id"`
	ClauseID *string        `json:"clause_id"`
	Topic    string         `json:"topic"`
	Text     string         `json:"text"`
	Metadata MetadataRecord `json:"metadata"`
}
