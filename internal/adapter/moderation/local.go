package moderation

import (
	"regexp"
	"strings"
)

const localProvider = "local"

type rule struct {
	category string
	pattern  *regexp.Regexp
}

// Rules are matched case-insensitively and cover English and Spanish phrasing.
var localRules = []rule{
	{"drugs", regexp.MustCompile(`(?i)\b(narco\w*|drug[\s-]*(dealer|traffick\w*|lord)|drogas?\b|(vendedor|distribuidor|traficante)\w*\s+de\s+drogas?)`)},
	{"organ trafficking", regexp.MustCompile(`(?i)(organ\w*\s+(dealer|traffick\w*|sale)|tr[aá]fico\s+de\s+[oó]rganos|venta\s+de\s+[oó]rganos)`)},
	{"weapons", regexp.MustCompile(`(?i)\b(sicario|hitman|hit\s+man|asesino|weapons?\s+(dealer|traffick\w*|smuggl\w*)|armas?\b|traficante\s+de\s+armas)`)},
	{"sexual exploitation", regexp.MustCompile(`(?i)(prostitu\w*|proxeneta|\bpimp\w*|escort\s+service|trabajo\s+sexual)`)},
	{"terrorism", regexp.MustCompile(`(?i)(terroris\w*|extremis\w*|yihad\w*|jihad\w*)`)},
	{"fraud", regexp.MustCompile(`(?i)\b(fraude|estafa|scam\w*|ponzi|piramidal|phishing\s+(campaign|scheme|kit))`)},
}

// CheckLocal evaluates the built-in rules. It always returns a decision.
func CheckLocal(text string) Verdict {
	var hits []string
	for _, r := range localRules {
		if r.pattern.MatchString(text) {
			hits = append(hits, r.category)
		}
	}
	if len(hits) > 0 {
		return Rejected(localProvider, hits, "inappropriate content detected: "+strings.Join(hits, ", "))
	}
	return Approved(localProvider)
}
