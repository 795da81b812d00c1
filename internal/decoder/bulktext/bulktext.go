// Package bulktext provides the bulkfile.LineDecoder wiring point for the
// SYNOP and ship-and-buoy text report grammars. Parsing the WMO FM-12/FM-13
// alphanumeric codes themselves is out of scope; this package validates
// that a line looks like a report header and reports the unimplemented
// decode step, so the downloader's fetch/scan/cadence-alignment behavior
// is fully exercised.
package bulktext

import (
	"errors"
	"strings"

	"meteodata.example/meteodata-server/internal/model"
)

// ErrNotImplemented marks the WMO report-body parsing left out of scope.
var ErrNotImplemented = errors.New("bulktext: report body decoding not implemented")

// Decoder is a minimal bulkfile.LineDecoder for one bulk report grammar.
type Decoder struct {
	// headerPrefix identifies lines that open a new report (e.g. "AAXX"
	// for SYNOP, "BBXX"/"ZZYY" for ship/buoy); other lines are skipped.
	headerPrefix []string
}

// New builds a Decoder recognizing the given report header prefixes.
func New(headerPrefix ...string) *Decoder {
	return &Decoder{headerPrefix: headerPrefix}
}

// DecodeLine reports ok=false (no observation) for blank lines and lines
// that don't open a recognized report; for a recognized report header it
// returns ErrNotImplemented rather than fabricating a parse.
func (d *Decoder) DecodeLine(line string) (model.Observation, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return model.Observation{}, false, nil
	}
	for _, prefix := range d.headerPrefix {
		if strings.HasPrefix(trimmed, prefix) {
			return model.Observation{}, false, ErrNotImplemented
		}
	}
	return model.Observation{}, false, nil
}
