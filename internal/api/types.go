package api

// EODQuote is one entry of the EODHD real-time response. Only Code and
// Close are read by the price table pipeline.
type EODQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	GMTOffset     int     `json:"gmtoffset"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_p"`
}
