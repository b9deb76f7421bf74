package demoserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strconv"
	"sync"
)

// DemoServer serves a small site whose pages can be switched between
// versions at runtime. Point a monitored domain at it, flip a version, and
// the next periodic check sees a change.
type DemoServer struct {
	cfg      Config
	pages    map[string]PageDefinition
	versions map[string]int // path -> current version
	mu       sync.RWMutex
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	pages := GetAllPages()
	pageMap := make(map[string]PageDefinition)
	versions := make(map[string]int)

	for _, p := range pages {
		pageMap[p.Path] = p
		versions[p.Path] = cfg.InitialVersion
	}

	return &DemoServer{
		cfg:      cfg,
		pages:    pageMap,
		versions: versions,
	}
}

// Handler builds the demo server's route table.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for p := range s.pages {
		mux.HandleFunc(p, s.pageHandler(p))
	}

	// Control panel for version switching
	mux.HandleFunc("/demo/control", s.controlPanelHandler)
	mux.HandleFunc("/demo/set-version", s.setVersionHandler)
	mux.HandleFunc("/demo/get-versions", s.getVersionsHandler)
	mux.HandleFunc("/demo/bump-all", s.bumpAllVersionsHandler)
	mux.HandleFunc("/demo/reset", s.resetVersionsHandler)

	mux.HandleFunc("/static/", s.staticHandler)

	return mux
}

// Start starts the demo server.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo server starting on http://localhost%s\n", addr)
	fmt.Printf("Control panel at http://localhost%s/demo/control\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// pageHandler returns a handler for a specific page path.
func (s *DemoServer) pageHandler(pagePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		pageDef, ok := s.pages[pagePath]
		version := s.versions[pagePath]
		s.mu.RUnlock()

		if !ok || r.URL.Path != pagePath {
			http.NotFound(w, r)
			return
		}

		// Fall back to the closest lower version that exists.
		pageVersion, ok := pageDef.Versions[version]
		if !ok {
			for v := version; v >= 1; v-- {
				if pv, exists := pageDef.Versions[v]; exists {
					pageVersion = pv
					break
				}
			}
		}

		for k, v := range pageVersion.Headers {
			w.Header().Set(k, v)
		}

		contentType := pageVersion.ContentType
		if contentType == "" {
			contentType = "text/html"
		}
		w.Header().Set("Content-Type", contentType)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(pageVersion.HTML))
	}
}

// placeholderPNG is a valid 1x1 image so downloaded assets contain real
// image bytes.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

// placeholderWOFF2 carries the WOFF2 magic so font downloads are not
// mistaken for text.
var placeholderWOFF2 = []byte("wOF2\x00\x01\x00\x00")

// staticHandler serves placeholder assets by extension.
func (s *DemoServer) staticHandler(w http.ResponseWriter, r *http.Request) {
	switch path.Ext(r.URL.Path) {
	case ".css":
		w.Header().Set("Content-Type", "text/css")
		_, _ = fmt.Fprintf(w, "/* %s */\nbody { font-family: sans-serif; margin: 2em; }\n.banner { background: #ffe9a8; padding: 1em; }\n", r.URL.Path)
	case ".png":
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(placeholderPNG)
	case ".woff2":
		w.Header().Set("Content-Type", "font/woff2")
		_, _ = w.Write(placeholderWOFF2)
	default:
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = fmt.Fprintf(w, "// %s\nconsole.log(%q);\n", r.URL.Path, "loaded "+r.URL.Path)
	}
}

// controlPanelHandler serves the control panel for version management.
func (s *DemoServer) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl := template.Must(template.New("control").Parse(controlPanelHTML))
	data := struct {
		Pages    map[string]PageDefinition
		Versions map[string]int
		Port     int
	}{
		Pages:    s.pages,
		Versions: s.versions,
		Port:     s.cfg.Port,
	}
	w.Header().Set("Content-Type", "text/html")
	_ = tmpl.Execute(w, data)
}

// setVersionHandler sets the version for a specific page.
func (s *DemoServer) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pagePath := r.FormValue("path")
	version, err := strconv.Atoi(r.FormValue("version"))
	if err != nil {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if _, ok := s.pages[pagePath]; ok {
		s.versions[pagePath] = version
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"path":    pagePath,
		"version": version,
	})
}

// getVersionsHandler returns the current versions of all pages.
func (s *DemoServer) getVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type PageInfo struct {
		Path              string `json:"path"`
		Description       string `json:"description"`
		CurrentVersion    int    `json:"current_version"`
		AvailableVersions []int  `json:"available_versions"`
	}

	var pages []PageInfo
	for pagePath, pageDef := range s.pages {
		var versions []int
		for v := range pageDef.Versions {
			versions = append(versions, v)
		}
		pages = append(pages, PageInfo{
			Path:              pagePath,
			Description:       pageDef.Description,
			CurrentVersion:    s.versions[pagePath],
			AvailableVersions: versions,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pages)
}

// bumpAllVersionsHandler increments the version of all pages, capped at
// each page's highest defined version.
func (s *DemoServer) bumpAllVersionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	for pagePath := range s.versions {
		s.versions[pagePath]++
		maxV := 1
		for v := range s.pages[pagePath].Versions {
			if v > maxV {
				maxV = v
			}
		}
		if s.versions[pagePath] > maxV {
			s.versions[pagePath] = maxV
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "All versions bumped",
	})
}

// resetVersionsHandler resets all pages to version 1.
func (s *DemoServer) resetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	for pagePath := range s.versions {
		s.versions[pagePath] = 1
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "All versions reset to 1",
	})
}

const controlPanelHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Vigil Demo Target</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #2a6f4e; padding-bottom: 10px; }
        .info { background: #e7f3ff; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .global { background: #fff3cd; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .card { background: white; border-radius: 8px; padding: 16px; margin: 12px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .path { font-weight: bold; color: #2a6f4e; text-decoration: none; }
        .desc { color: #666; margin: 6px 0; }
        .current { float: right; color: #28a745; font-weight: bold; }
        button { padding: 8px 14px; margin-right: 6px; border: none; border-radius: 4px; cursor: pointer; }
        button.active { background: #2a6f4e; color: white; }
        button.inactive { background: #e9ecef; }
        .bump { background: #28a745; color: white; }
        .reset { background: #dc3545; color: white; }
    </style>
</head>
<body>
    <h1>Vigil Demo Target</h1>

    <div class="info">
        Switch page versions to simulate a site changing under monitoring.
        A watcher pointed at this server picks the change up on its next
        periodic check and dumps a fresh snapshot.
    </div>

    <div class="global">
        <button class="bump" onclick="post('/demo/bump-all')">Bump All Versions</button>
        <button class="reset" onclick="post('/demo/reset')">Reset All to v1</button>
    </div>

    {{range $path, $page := .Pages}}
    <div class="card">
        <span class="current">Current: v{{index $.Versions $path}}</span>
        <a href="{{$path}}" target="_blank" class="path">{{$path}}</a>
        <div class="desc">{{$page.Description}}</div>
        <div>
            {{range $v, $_ := $page.Versions}}
            <button class="{{if eq (index $.Versions $path) $v}}active{{else}}inactive{{end}}"
                    onclick="setVersion('{{$path}}', {{$v}})">v{{$v}}</button>
            {{end}}
        </div>
    </div>
    {{end}}

    <script>
        function setVersion(path, version) {
            fetch('/demo/set-version', {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: 'path=' + encodeURIComponent(path) + '&version=' + version
            }).then(() => location.reload());
        }
        function post(url) {
            fetch(url, {method: 'POST'}).then(() => location.reload());
        }
    </script>
</body>
</html>`
