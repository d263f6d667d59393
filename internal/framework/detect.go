// Package framework scores file paths against entry-point conventions of
// common web, API, and CLI frameworks. The score is consumed by external
// process detection as a weighting signal; nothing else depends on it.
package framework

import (
	"path"
	"strings"
)

// Detection is the scorer output: a framework tag, a fixed multiplier in
// [1.0, 3.0], and a short reason code.
type Detection struct {
	Framework  string
	Multiplier float64
	Reason     string
}

// rule is one path-pattern heuristic
type rule struct {
	framework  string
	multiplier float64
	reason     string
	match      func(p, base string) bool
}

func hasDir(p, dir string) bool {
	return strings.Contains(p, "/"+dir+"/")
}

func hasSuffixAny(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func isScript(base string) bool {
	return hasSuffixAny(base, ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs")
}

// rules are evaluated in priority order; the first match wins. Specific
// route/controller/page patterns come before generic catch-alls so that, for
// example, an index file inside an api folder never shadows an api route.
var rules = []rule{
	{"nextjs", 3.0, "nextjs-api-route", func(p, base string) bool {
		return (hasDir(p, "pages/api") || hasDir(p, "app/api")) && isScript(base)
	}},
	{"nextjs", 2.5, "nextjs-app-route", func(p, base string) bool {
		return hasDir(p, "app") && (base == "route.ts" || base == "route.js" ||
			base == "page.tsx" || base == "page.jsx" || base == "page.ts" || base == "page.js")
	}},
	{"nextjs", 2.0, "nextjs-page", func(p, base string) bool {
		return hasDir(p, "pages") && isScript(base) && !strings.HasPrefix(base, "_")
	}},
	{"nestjs", 2.5, "nest-controller", func(p, base string) bool {
		return hasSuffixAny(base, ".controller.ts", ".controller.js")
	}},
	{"express", 2.5, "express-route", func(p, base string) bool {
		return (hasDir(p, "routes") || hasDir(p, "routers")) && isScript(base)
	}},
	{"spring", 2.5, "spring-controller", func(p, base string) bool {
		return hasSuffixAny(base, "controller.java", "controller.kt")
	}},
	{"rails", 2.5, "rails-controller", func(p, base string) bool {
		return hasDir(p, "app/controllers") && strings.HasSuffix(base, "_controller.rb")
	}},
	{"django", 2.5, "django-urls", func(p, base string) bool {
		return base == "urls.py"
	}},
	{"django", 2.0, "django-views", func(p, base string) bool {
		return base == "views.py" || (hasDir(p, "views") && strings.HasSuffix(base, ".py"))
	}},
	{"fastapi", 2.0, "python-api-router", func(p, base string) bool {
		return (hasDir(p, "api") || hasDir(p, "routers")) && strings.HasSuffix(base, ".py")
	}},
	{"generic", 2.0, "api-handler", func(p, base string) bool {
		return (hasDir(p, "api") || hasDir(p, "handlers") || hasDir(p, "controllers")) &&
			hasSuffixAny(base, ".go", ".js", ".ts", ".py", ".rb", ".java", ".cs")
	}},
	{"generic", 2.0, "server-entry", func(p, base string) bool {
		return hasSuffixAny(base, "server.go", "server.js", "server.ts", "server.py")
	}},
	{"generic", 1.5, "main-entry", func(p, base string) bool {
		return base == "main.go" || base == "main.py" || base == "__main__.py" ||
			base == "index.js" || base == "index.ts" || base == "app.py" || base == "app.js"
	}},
	{"generic", 1.5, "cli-entry", func(p, base string) bool {
		return hasDir(p, "cmd") || hasDir(p, "bin") ||
			hasSuffixAny(base, "cli.py", "cli.js", "cli.ts", "cli.go")
	}},
}

// Detect evaluates the ordered rule table against filePath. Pure and
// deterministic: no I/O, first match wins, no match returns ok=false (no
// bonus, no penalty).
func Detect(filePath string) (Detection, bool) {
	p := normalize(filePath)
	if p == "/" {
		return Detection{}, false
	}
	base := path.Base(p)
	for _, r := range rules {
		if r.match(p, base) {
			return Detection{
				Framework:  r.framework,
				Multiplier: r.multiplier,
				Reason:     r.reason,
			}, true
		}
	}
	return Detection{}, false
}

// normalize lowercases, converts separators, and guarantees a leading slash
// so directory patterns match at any depth
func normalize(filePath string) string {
	p := strings.ToLower(strings.ReplaceAll(filePath, "\\", "/"))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
