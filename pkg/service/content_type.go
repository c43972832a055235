package service

import (
	"fmt"
	"strings"
)

// ContentType is the hint used to pick a Content-Type header when the
// caller did not set one.
type ContentType int

const (
	// Unknown leaves the Content-Type header unset.
	Unknown ContentType = iota - 1
	ApplicationJSON
	FormURLEncoded
)

const (
	MIMEApplicationJSON = "application/json"
	MIMEFormURLEncoded  = "application/x-www-form-urlencoded"
)

// MIME returns the media type for c, or "" for Unknown.
func (c ContentType) MIME() string {
	switch c {
	case ApplicationJSON:
		return MIMEApplicationJSON
	case FormURLEncoded:
		return MIMEFormURLEncoded
	default:
		return ""
	}
}

func (c ContentType) String() string {
	switch c {
	case ApplicationJSON:
		return "json"
	case FormURLEncoded:
		return "form"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("ContentType(%d)", int(c))
	}
}

// ParseContentType accepts the short names, the enum names and the MIME strings.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "applicationjson", MIMEApplicationJSON:
		return ApplicationJSON, nil
	case "form", "formurlencoded", MIMEFormURLEncoded:
		return FormURLEncoded, nil
	case "unknown", "none", "":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown content type %q", s)
}

func (c ContentType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ContentType) UnmarshalText(text []byte) error {
	parsed, err := ParseContentType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
