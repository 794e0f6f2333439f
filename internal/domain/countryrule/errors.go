package countryrule

import "errors"

var (
	ErrConfigNotFound           = errors.New("no active country configuration for this date")
	ErrUnsupportedCountry       = errors.New("country has no tax system configured")
	ErrSectorNotFound           = errors.New("sector code not found in country configuration")
	ErrTransportMinimumNotFound = errors.New("no transport minimum configured for this city")
	ErrUnknownBracketMethod     = errors.New("unknown tax bracket method")
)
