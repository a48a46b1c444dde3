// Package scope implements scope inference for feature requirements.
//
// The Scope Gate is the core value proposition of scopegate: it turns
// free-text requirements into a quantified scope boundary (tables, files,
// services, dependencies), scores how well-specified that scope is, and
// refuses to let estimation proceed against ambiguous or unconfirmed scope.
//
// Everything in this package is pure and total: extraction, scoring,
// boundary construction, and validation never fail — worst case they
// degrade to empty or zero values.
package scope

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Entities holds the four deduplicated entity lists inferred from
// requirement text. Each list is sorted alphabetically for determinism
// and deduplicated case-insensitively. Immutable once produced.
type Entities struct {
	Tables       []string `json:"tables"`
	Files        []string `json:"files"`
	Services     []string `json:"services"`
	Dependencies []string `json:"dependencies"`
}

// IsEmpty reports whether no entities were extracted in any category.
func (e *Entities) IsEmpty() bool {
	return len(e.Tables) == 0 && len(e.Files) == 0 &&
		len(e.Services) == 0 && len(e.Dependencies) == 0
}

// rule is one ordered extraction pattern. Rules run in priority order —
// more specific patterns first — and a later match that overlaps a region
// already consumed by an earlier rule is skipped, so "Azure AD B2C" is
// never re-matched as "Azure AD".
type rule struct {
	re *regexp.Regexp
	// list marks rules whose capture is a comma-separated list; each
	// fragment is processed as its own candidate.
	list bool
	// maxWords rejects list fragments longer than this many words.
	// Zero means no limit. Used by loose captures ("requires ...") to
	// avoid swallowing prose.
	maxWords int
}

// span is a half-open [start, end) region of text consumed by a match.
type span struct{ start, end int }

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

// stopwords are filler tokens that generic patterns may capture but that
// never name a real entity.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"these": true, "those": true, "each": true, "every": true, "all": true,
	"any": true, "some": true, "few": true, "various": true, "certain": true,
	"new": true, "existing": true, "main": true, "other": true, "our": true,
	"to": true, "in": true, "for": true, "with": true, "and": true,
	"or": true, "of": true, "no": true, "data": true, "database": true,
	"system": true, "it": true, "its": true,
}

// fileNameStop blocks runtime names that look like file names but are
// really technologies (the extension rule would otherwise claim them).
var fileNameStop = map[string]bool{
	"node.js": true, "vue.js": true, "next.js": true, "react.js": true,
	"express.js": true, "nest.js": true,
}

const fileExtAlt = `(?:cs|csx|js|jsx|ts|tsx|py|go|rb|java|kt|swift|php|sql|html|css|scss|json|yaml|yml|xml|vue|svelte|md)`

var (
	tableRules = []rule{
		{re: regexp.MustCompile(`(?i)\btables?\s*:\s*([^\n]+)`), list: true},
		{re: regexp.MustCompile(`(?i)\btables?\s+(?:such as|like|including|named|called)\s+([^\n]+)`), list: true, maxWords: 3},
		{re: regexp.MustCompile(`\b[Tt]able\s+([A-Z][A-Za-z0-9_\-]*)\b`)},
		{re: regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_\-]*)\s+tables?\b`)},
	}

	fileRules = []rule{
		{re: regexp.MustCompile(`(?i)\bfiles?\s*:\s*([^\n]+)`), list: true},
		{re: regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_\-]*\.` + fileExtAlt + `)\b`)},
		{re: regexp.MustCompile(`\b([A-Z][A-Za-z0-9]*(?:Service|Controller|Repository|Manager|Handler|Component|Middleware|Model|Module|Helper|Provider|Client|Gateway|Factory))\b`)},
		{re: regexp.MustCompile(`(?i)\b(?:file|class)\s+([A-Za-z_][A-Za-z0-9_\-]*(?:\.[A-Za-z0-9]+)?)\b`)},
	}

	serviceRules = []rule{
		{re: regexp.MustCompile(`(?i)\bservices?\s*:\s*([^\n]+)`), list: true},
		// Multi-word providers, most specific first.
		{re: regexp.MustCompile(`(?i)\b(Azure\s+AD\s+B2C)\b`)},
		{re: regexp.MustCompile(`(?i)\b(Azure\s+Active\s+Directory)\b`)},
		{re: regexp.MustCompile(`(?i)\b(Azure\s+AD)\b`)},
		{re: regexp.MustCompile(`(?i)\b(Azure\s+(?:Blob\s+Storage|Service\s+Bus|Key\s+Vault|Functions))\b`)},
		{re: regexp.MustCompile(`(?i)\b(AWS\s+(?:Cognito|Lambda|SQS|SNS|SES))\b`)},
		{re: regexp.MustCompile(`(?i)\b(Amazon\s+S3|Google\s+Cloud\s+Storage|Google\s+Maps)\b`)},
		// Single-word providers.
		{re: regexp.MustCompile(`(?i)\b(Auth0|Okta|SendGrid|Mailgun|Twilio|Stripe|PayPal|Braintree|Redis|Memcached|Kafka|RabbitMQ|Elasticsearch|Algolia|Firebase|Supabase|Cloudinary|Datadog|Sentry|Keycloak)\b`)},
		// Generic mentions.
		{re: regexp.MustCompile(`(?i)\bintegrat\w*\s+with\s+([A-Za-z][A-Za-z0-9_\-]*)`)},
		{re: regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_\-]*)\s+(?:API|service)\b`)},
	}

	depRules = []rule{
		{re: regexp.MustCompile(`(?i)\bdependenc(?:y|ies)\s*:\s*([^\n]+)`), list: true},
		// Known technologies, most specific first.
		{re: regexp.MustCompile(`(?i)\b(OAuth\s*2\.0)\b`)},
		{re: regexp.MustCompile(`(?i)\b(OAuth2|OAuth)\b`)},
		{re: regexp.MustCompile(`(?i)\b(OpenID\s+Connect)\b`)},
		{re: regexp.MustCompile(`(?i)\b(Entity\s+Framework(?:\s+Core)?)\b`)},
		{re: regexp.MustCompile(`(?i)\b(JWT|SAML|LDAP|GraphQL|gRPC|WebSockets?|Webhooks?|SignalR|Docker|Kubernetes|Terraform|OpenAPI|Swagger|Protobuf|MFA|TOTP)\b`)},
		// Loose captures; fragment length is capped to avoid prose.
		{re: regexp.MustCompile(`(?i)\brequires?\s+([^\n]+)`), list: true, maxWords: 3},
		{re: regexp.MustCompile(`(?i)\bdepends?\s+on\s+([^\n]+)`), list: true, maxWords: 3},
	}
)

// Extractor turns raw requirement text into deduplicated entity lists.
// It is pure pattern matching — no statistical NLP — and never fails:
// empty or unrecognizable text yields four empty lists.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs every category's rule list against the text and returns
// the sorted, deduplicated entities.
func (x *Extractor) Extract(text string) *Entities {
	tables := newEntitySet()
	services := newEntitySet()
	deps := newEntitySet()
	files := newFileSet()

	extractCategory(text, tableRules, tables.add)
	extractCategory(text, fileRules, files.add)
	extractCategory(text, serviceRules, func(raw string, limit int) bool {
		return services.add(stripServiceSuffix(raw), limit)
	})
	extractCategory(text, depRules, deps.add)

	return &Entities{
		Tables:       tables.sorted(),
		Files:        files.sorted(),
		Services:     services.sorted(),
		Dependencies: deps.sorted(),
	}
}

// extractCategory applies one category's rules in priority order,
// suppressing matches that overlap already-consumed text.
func extractCategory(text string, rules []rule, add func(raw string, maxWords int) bool) {
	var consumed []span
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if overlaps(consumed, start, end) {
				continue
			}
			raw := text[m[2]:m[3]]
			if r.list {
				raw = truncateSentence(raw)
				// Only the truncated region counts as consumed, so a
				// swallowed tail stays available to later rules.
				end = m[2] + len(raw)
				for _, frag := range splitList(raw) {
					add(frag, r.maxWords)
				}
			} else {
				add(raw, 0)
			}
			consumed = append(consumed, span{start, end})
		}
	}
}

// truncateSentence cuts a line capture at the first sentence boundary
// (". " or a trailing period). "OAuth 2.0" survives: its inner period
// is not followed by a space.
func truncateSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

var listSep = regexp.MustCompile(`(?i)\s*,\s*|\s+and\s+`)

// splitList breaks a captured list into candidate fragments.
func splitList(raw string) []string {
	parts := listSep.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var serviceForSuffix = regexp.MustCompile(`(?i)\s+for\s+[A-Za-z0-9_\-]+$`)

// stripServiceSuffix removes a trailing " for <word>" qualifier, so
// "SendGrid for emails" becomes "SendGrid".
func stripServiceSuffix(raw string) string {
	return serviceForSuffix.ReplaceAllString(raw, "")
}

// normalizeEntity canonicalizes a candidate: trims surrounding junk,
// collapses whitespace, replaces hyphens with underscores, and uppercases
// the first letter only — the rest of the spelling is preserved as written.
func normalizeEntity(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `.,;:"'()[]`)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "-", "_")
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// entitySet is a case-insensitive-keyed set where the first accepted
// spelling for a given lowercase key wins; later duplicates are ignored.
type entitySet struct {
	byKey map[string]string
}

func newEntitySet() *entitySet {
	return &entitySet{byKey: make(map[string]string)}
}

func (s *entitySet) add(raw string, maxWords int) bool {
	name := normalizeEntity(raw)
	if name == "" {
		return false
	}
	if maxWords > 0 && len(strings.Fields(name)) > maxWords {
		return false
	}
	key := strings.ToLower(name)
	if stopwords[key] {
		return false
	}
	if _, ok := s.byKey[key]; ok {
		return false
	}
	s.byKey[key] = name
	return true
}

func (s *entitySet) sorted() []string {
	out := make([]string, 0, len(s.byKey))
	for _, v := range s.byKey {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// fileSet deduplicates file names keyed by the extensionless base name.
// An extensioned form (UserService.cs) always beats a bare identifier
// (UserService), regardless of which was seen first; otherwise the first
// accepted spelling wins.
type fileSet struct {
	byBase map[string]string
}

func newFileSet() *fileSet {
	return &fileSet{byBase: make(map[string]string)}
}

func (s *fileSet) add(raw string, maxWords int) bool {
	name := normalizeEntity(raw)
	if name == "" || strings.Contains(name, " ") {
		return false
	}
	key := strings.ToLower(name)
	if stopwords[key] || fileNameStop[key] {
		return false
	}
	base := key
	hasExt := false
	if i := strings.LastIndex(key, "."); i > 0 {
		base = key[:i]
		hasExt = true
	}
	existing, ok := s.byBase[base]
	if !ok {
		s.byBase[base] = name
		return true
	}
	if hasExt && !strings.Contains(existing, ".") {
		s.byBase[base] = name
		return true
	}
	return false
}

func (s *fileSet) sorted() []string {
	out := make([]string, 0, len(s.byBase))
	for _, v := range s.byBase {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
