package domain

// Detection is the result of inspecting one byte stream.
type Detection struct {
	// Size is the length of the inspected stream.
	Size int64 `json:"size"`

	// MIME is the classified type of the whole stream.
	MIME MIME `json:"mime"`

	// Description is the classifier's long description of the whole stream.
	Description string `json:"description,omitempty"`

	// Findings is ordered by offset. Empty when the whole stream decoded.
	Findings []Finding `json:"findings"`
}

// Suspicious returns true if trailing data was found.
func (d *Detection) Suspicious() bool {
	return d != nil && len(d.Findings) > 0
}
