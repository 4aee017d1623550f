package model

// SymbolRecord represents one instrument in the symbol corpus. All four
// fields are required on write requests.
type SymbolRecord struct {
	Symbol       string `json:"symbol" binding:"required"`
	Exchange     string `json:"exchange" binding:"required"`
	Description  string `json:"description" binding:"required"`
	SecurityType string `json:"securityType" binding:"required"`
}

// SameInstrument reports whether two records refer to the same instrument on
// the same venue. This is the identity used by the ingestion worklist, which
// tracks instruments per venue regardless of security type.
func (r SymbolRecord) SameInstrument(other SymbolRecord) bool {
	return r.Symbol == other.Symbol && r.Exchange == other.Exchange
}

// CorpusKey is the identity of a record within the partitioned corpus.
type CorpusKey struct {
	Symbol       string
	Exchange     string
	SecurityType string
}

// Key returns the corpus identity of a record
func (r SymbolRecord) Key() CorpusKey {
	return CorpusKey{Symbol: r.Symbol, Exchange: r.Exchange, SecurityType: r.SecurityType}
}

// SearchFilter represents query parameters for symbol search
type SearchFilter struct {
	SearchString string `json:"search_string" form:"search_string"`
	Exchange     string `json:"exchange" form:"exchange"`
	SecurityType string `json:"security_type" form:"security_type"`
}
