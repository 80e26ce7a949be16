package dump1090

import "errors"

var (
	// ErrLookupKeyRequired is returned by Find when neither a hex id nor a
	// callsign is supplied.
	ErrLookupKeyRequired = errors.New("dump1090: hex id or flight callsign required")

	// ErrHistoryCountUnknown is returned when history is requested without a
	// usable history file count from receiver.json.
	ErrHistoryCountUnknown = errors.New("dump1090: history file count unknown")
)
