package whois

import (
	"regexp"
	"strings"
)

// Record is the parsed result of a WHOIS lookup. Dates are kept verbatim as
// the registry printed them; formats vary too much across TLDs to normalize
// reliably.
type Record struct {
	DomainName     string   `json:"domain_name"`
	Registrar      string   `json:"registrar,omitempty"`
	CreationDate   string   `json:"creation_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	UpdatedDate    string   `json:"updated_date,omitempty"`
	NameServers    []string `json:"name_servers"`

	// Method names the lookup method that produced the record.
	Method string `json:"method"`

	// RawOutput holds the start of the raw response for debugging.
	RawOutput string `json:"raw_output,omitempty"`
}

const rawOutputLimit = 500

// Field labels vary per registry; these patterns cover the common spellings.
var (
	referPattern      = regexp.MustCompile(`(?im)^\s*(?:refer|whois):\s*(\S+)`)
	registrarPattern  = regexp.MustCompile(`(?i)(?:Registrar|Sponsoring Registrar):\s*(.+)`)
	creationPattern   = regexp.MustCompile(`(?i)(?:Creation Date|Created|Registration Time):\s*(.+)`)
	expirationPattern = regexp.MustCompile(`(?i)(?:Expir(?:y|ation) Date|Expires|Registry Expiry Date):\s*(.+)`)
	updatedPattern    = regexp.MustCompile(`(?i)(?:Updated Date|Last Updated|Modified):\s*(.+)`)
	nameServerPattern = regexp.MustCompile(`(?i)(?:Name Server|nserver):\s*(.+)`)
)

// referralServer extracts the registry server a root response points at.
func referralServer(text string) string {
	m := referPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseResponse pulls the commonly wanted fields out of raw WHOIS text.
func parseResponse(domain, raw string) *Record {
	rec := &Record{
		DomainName:  domain,
		NameServers: []string{},
		RawOutput:   truncate(raw, rawOutputLimit),
	}

	if m := registrarPattern.FindStringSubmatch(raw); m != nil {
		rec.Registrar = strings.TrimSpace(m[1])
	}
	if m := creationPattern.FindStringSubmatch(raw); m != nil {
		rec.CreationDate = strings.TrimSpace(m[1])
	}
	if m := expirationPattern.FindStringSubmatch(raw); m != nil {
		rec.ExpirationDate = strings.TrimSpace(m[1])
	}
	if m := updatedPattern.FindStringSubmatch(raw); m != nil {
		rec.UpdatedDate = strings.TrimSpace(m[1])
	}
	for _, m := range nameServerPattern.FindAllStringSubmatch(raw, -1) {
		ns := strings.ToLower(strings.TrimSpace(m[1]))
		if ns != "" {
			rec.NameServers = append(rec.NameServers, ns)
		}
	}

	return rec
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
