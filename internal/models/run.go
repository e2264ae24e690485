package models

// RunResult is everything one pipeline run produced for a ticker.
type RunResult struct {
	RunID          string                `json:"run_id"`
	Ticker         string                `json:"ticker"`
	AsOf           string                `json:"as_of"`
	TradeDate      string                `json:"trade_date"`
	Window         TimeWindow            `json:"window"`
	Version        VersionBundle         `json:"version"`
	SecurityMaster SecurityMaster        `json:"security_master"`
	Classification CategoryRoutingResult `json:"classification"`
	Schema         SchemaDefinition      `json:"analysis_schema"`
	News           PreprocessedBundle    `json:"news"`
}

// Header returns the audit header shared by the run's records.
func (r RunResult) Header() AuditHeader {
	return AuditHeader{RunID: r.RunID, Ticker: r.Ticker, AsOf: r.AsOf, Version: r.Version}
}
