package classifier

import "github.com/autoissue/autoissue/pkg/models"

// titleTags maps a bracketed title tag (lowercased, without brackets) to
// its canonical domain. Tier 1 seed set per the design notes; additions
// are expected to live here and nowhere else.
var titleTags = map[string]models.Domain{
	"backend":        models.DomainBackend,
	"frontend":       models.DomainFrontend,
	"database":       models.DomainDatabase,
	"infra":          models.DomainInfrastructure,
	"infrastructure": models.DomainInfrastructure,
	"security":       models.DomainSecurity,
	"testing":        models.DomainTesting,
	"docs":           models.DomainDocumentation,
	"documentation":  models.DomainDocumentation,
}

// labelSynonyms maps a lowercased label to its canonical domain, including
// the documented synonyms (ui, infra, db).
var labelSynonyms = map[string]models.Domain{
	"backend":        models.DomainBackend,
	"frontend":       models.DomainFrontend,
	"ui":             models.DomainFrontend,
	"database":       models.DomainDatabase,
	"db":             models.DomainDatabase,
	"infrastructure": models.DomainInfrastructure,
	"infra":          models.DomainInfrastructure,
	"security":       models.DomainSecurity,
	"testing":        models.DomainTesting,
	"documentation":  models.DomainDocumentation,
}

// pathPattern is one recognized path-like token and the domain it implies.
type pathPattern struct {
	token  string
	domain models.Domain
}

// pathPatterns is scanned in order against the title+body text; every
// occurrence of token counts as one hit for domain (Tier 3).
var pathPatterns = []pathPattern{
	{"src/api/", models.DomainBackend},
	{"server/", models.DomainBackend},
	{"backend/", models.DomainBackend},
	{"src/components/", models.DomainFrontend},
	{"ui/", models.DomainFrontend},
	{"frontend/", models.DomainFrontend},
	{".tsx", models.DomainFrontend},
	{".jsx", models.DomainFrontend},
	{"src/db/", models.DomainDatabase},
	{"migrations/", models.DomainDatabase},
	{"schema.", models.DomainDatabase},
	{"infra/", models.DomainInfrastructure},
	{"deploy/", models.DomainInfrastructure},
	{"Dockerfile", models.DomainInfrastructure},
	{".github/workflows/", models.DomainInfrastructure},
	{"test/", models.DomainTesting},
	{"__tests__/", models.DomainTesting},
	{".test.", models.DomainTesting},
	{".spec.", models.DomainTesting},
	{"docs/", models.DomainDocumentation},
	{"README", models.DomainDocumentation},
}

// keywordVocabulary is the curated per-domain keyword table for Tier 4.
// Matches are case-insensitive whole words across title+body.
var keywordVocabulary = map[models.Domain][]string{
	models.DomainSecurity: {
		"cve", "xss", "sql injection", "vulnerability", "exploit",
		"csrf", "auth bypass", "privilege escalation", "sanitize",
	},
	models.DomainDatabase: {
		"migration", "drizzle", "table", "schema", "index", "query plan",
		"postgres", "sqlite", "orm",
	},
	models.DomainBackend: {
		"trpc", "endpoint", "mutation", "handler", "api", "middleware",
		"controller", "route", "grpc",
	},
	models.DomainFrontend: {
		"react", "component", "modal", "shadcn", "button", "hook",
		"css", "layout", "render",
	},
	models.DomainInfrastructure: {
		"docker", "kubernetes", "ci/cd", "pipeline", "deploy", "terraform",
		"helm", "container",
	},
	models.DomainTesting: {
		"unit test", "integration test", "e2e", "flaky", "test coverage",
		"assertion", "mock",
	},
	models.DomainDocumentation: {
		"readme", "changelog", "docstring", "tutorial", "guide",
	},
}
