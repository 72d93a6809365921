package feed

import "time"

// Record is one upstream PID feed row, matching the TfGM Metrolinks
// odata feed's field names verbatim (spec.md §6). Only the fields the
// decoder consumes are modeled; everything else in the upstream
// payload is ignored.
type Record struct {
	StationLocation string `json:"StationLocation"`
	AtcoCode        string `json:"AtcoCode"`
	Direction       string `json:"Direction"`
	LastUpdated     string `json:"LastUpdated"`
	MessageBoard    string `json:"MessageBoard"`

	Dest0 string `json:"Dest0"`
	Dest1 string `json:"Dest1"`
	Dest2 string `json:"Dest2"`
	Dest3 string `json:"Dest3"`

	Carriages0 string `json:"Carriages0"`
	Carriages1 string `json:"Carriages1"`
	Carriages2 string `json:"Carriages2"`
	Carriages3 string `json:"Carriages3"`

	Status0 string `json:"Status0"`
	Status1 string `json:"Status1"`
	Status2 string `json:"Status2"`
	Status3 string `json:"Status3"`

	Wait0 string `json:"Wait0"`
	Wait1 string `json:"Wait1"`
	Wait2 string `json:"Wait2"`
	Wait3 string `json:"Wait3"`
}

// Dests, Carriageses, Statuses and Waits expose the four numbered slots
// as fixed-size arrays, so the decoder (internal/decode) can iterate rather than
// repeat itself four times.
func (r Record) Dests() [4]string      { return [4]string{r.Dest0, r.Dest1, r.Dest2, r.Dest3} }
func (r Record) Carriageses() [4]string {
	return [4]string{r.Carriages0, r.Carriages1, r.Carriages2, r.Carriages3}
}
func (r Record) Statuses() [4]string { return [4]string{r.Status0, r.Status1, r.Status2, r.Status3} }
func (r Record) Waits() [4]string    { return [4]string{r.Wait0, r.Wait1, r.Wait2, r.Wait3} }

// ParsedTime parses LastUpdated using the feed's documented layout,
// returning the zero Time on failure.
func (r Record) ParsedTime() (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", r.LastUpdated)
}

// envelope is the outer odata wrapper: {"value": [...]}
type envelope struct {
	Value []Record `json:"value"`
}

// Snapshot is one fetch's worth of upstream records, in the order the
// feed returned them, for the decoder to consume directly.
type Snapshot struct {
	Records   []Record
	FetchedAt time.Time
}
