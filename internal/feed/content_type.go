package feed

import (
	"fmt"
	"log/slog"
	"strings"
)

// ContentType identifies a category of activity log a tenant can subscribe to.
type ContentType int

const (
	AuditAzureActiveDirectory ContentType = iota
	AuditExchange
	AuditSharePoint
	AuditGeneral
	DLPAll
)

var contentTypeWire = map[ContentType]string{
	AuditAzureActiveDirectory: "Audit.AzureActiveDirectory",
	AuditExchange:             "Audit.Exchange",
	AuditSharePoint:           "Audit.SharePoint",
	AuditGeneral:              "Audit.General",
	DLPAll:                    "DLP.All",
}

var wireContentType = func() map[string]ContentType {
	m := make(map[string]ContentType, len(contentTypeWire))
	for ct, wire := range contentTypeWire {
		m[wire] = ct
	}
	return m
}()

// String returns the wire form used by the provider API.
func (c ContentType) String() string {
	wire, ok := contentTypeWire[c]
	if !ok {
		return fmt.Sprintf("ContentType(%d)", int(c))
	}
	return wire
}

// ParseContentType maps a wire string to its ContentType. Unknown strings are
// an error, never a silent default.
func ParseContentType(wire string) (ContentType, error) {
	ct, ok := wireContentType[strings.TrimSpace(wire)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownContentType, wire)
	}
	return ct, nil
}

// ParseContentTypes parses the comma-separated desired-set configuration
// value. Unknown entries are logged and skipped, duplicates collapse; an
// empty result is an error and must abort startup.
func ParseContentTypes(value string) ([]ContentType, error) {
	seen := make(map[ContentType]struct{})
	var out []ContentType
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ct, err := ParseContentType(part)
		if err != nil {
			slog.Warn("skipping unknown content type", "value", part)
			continue
		}
		if _, dup := seen[ct]; dup {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid content types in %q", value)
	}
	return out, nil
}
