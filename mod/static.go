package mod

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/km-arc/katapult/framework/module"
)

// ── Static files ─────────────────────────────────────────────────────────────

// StaticPath serves Dir under the URL Prefix.
type StaticPath struct {
	Prefix string
	Dir    string
}

// StaticFilesSpec lists the directories to serve.
type StaticFilesSpec struct {
	Paths []StaticPath
}

// WebRoot serves dir at "/".
func WebRoot(dir string) StaticFilesSpec {
	return StaticFilesSpec{Paths: []StaticPath{{Prefix: "/", Dir: dir}}}
}

// StaticFilesModule serves files for requests no route matched. Routes
// always win over files.
type StaticFilesModule struct {
	module.BaseModule
	spec StaticFilesSpec
}

func NewStaticFilesModule(spec StaticFilesSpec) *StaticFilesModule {
	return &StaticFilesModule{spec: spec}
}

func (m *StaticFilesModule) ConfigureApp(app *module.App) {
	for _, p := range m.spec.Paths {
		app.NotFound(staticFallback(p))
	}
}

func staticFallback(p StaticPath) module.Fallback {
	prefix := "/" + strings.Trim(p.Prefix, "/")
	return func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			return false
		}
		rel, ok := underPrefix(prefix, r.URL.Path)
		if !ok {
			return false
		}
		return serveFile(w, r, filepath.Join(p.Dir, filepath.FromSlash(rel)))
	}
}

// underPrefix returns the cleaned remainder of urlPath below prefix.
func underPrefix(prefix, urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if prefix == "/" {
		return clean, true
	}
	if clean != prefix && !strings.HasPrefix(clean, prefix+"/") {
		return "", false
	}
	return "/" + strings.TrimPrefix(clean[len(prefix):], "/"), true
}

// serveFile writes the named file, or index.html for a directory. It
// reports false when there is nothing to serve.
func serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		if info, err = os.Stat(name); err != nil {
			return false
		}
	}
	if !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// ── Single page apps ─────────────────────────────────────────────────────────

// SpaSpec declares the page roots of a single or multi page app in Dir.
// Each subpage "admin" serves Dir/admin/index.html for any unmatched path
// under /admin; everything else falls back to Dir/index.html.
type SpaSpec struct {
	Dir      string
	Subpages []string
}

type spaRoot struct {
	prefix string
	index  string
}

// SpaModule serves the page root of an HTML request that matched neither a
// route nor a static file, so client-side routing sees deep links.
type SpaModule struct {
	module.BaseModule
	roots []spaRoot
}

func NewSpaModule(spec SpaSpec) *SpaModule {
	m := &SpaModule{}
	for _, sub := range spec.Subpages {
		sub = strings.Trim(sub, "/")
		if sub == "" {
			continue
		}
		m.roots = append(m.roots, spaRoot{
			prefix: "/" + sub,
			index:  filepath.Join(spec.Dir, filepath.FromSlash(sub), "index.html"),
		})
	}
	m.roots = append(m.roots, spaRoot{prefix: "/", index: filepath.Join(spec.Dir, "index.html")})
	return m
}

// Roots returns the URL prefixes in match order.
func (m *SpaModule) Roots() []string {
	out := make([]string, len(m.roots))
	for i, root := range m.roots {
		out[i] = root.prefix
	}
	return out
}

func (m *SpaModule) ConfigureApp(app *module.App) {
	app.NotFound(m.serve)
}

func (m *SpaModule) serve(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}
	for _, root := range m.roots {
		if _, ok := underPrefix(root.prefix, r.URL.Path); ok {
			return serveFile(w, r, root.index)
		}
	}
	return false
}
